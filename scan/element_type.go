package scan

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementKind enumerates the value interpretations an element can carry.
type ElementKind uint8

const (
	// KindBytes is an opaque blob; its width travels with the ElementType
	// rather than the kind.
	KindBytes ElementKind = iota
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
)

var kindWidths = map[ElementKind]int{
	KindUint8:   1,
	KindUint16:  2,
	KindUint32:  4,
	KindUint64:  8,
	KindInt8:    1,
	KindInt16:   2,
	KindInt32:   4,
	KindInt64:   8,
	KindFloat32: 4,
	KindFloat64: 8,
}

var kindNames = map[ElementKind]string{
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat32: "float32",
	KindFloat64: "float64",
}

// ElementType describes how the bytes starting at an element offset are
// interpreted. The zero value carries no width; operations that need one
// panic on it, so regions start out with DefaultElementType instead.
type ElementType struct {
	Kind  ElementKind
	width int
}

// DefaultElementType is assigned to fresh regions before a caller picks a type.
var DefaultElementType = TypeOf(KindUint8)

// TypeOf returns the ElementType for a fixed-width kind. KindBytes carries
// no fixed width; use BlobType for it.
func TypeOf(kind ElementKind) ElementType {
	w, ok := kindWidths[kind]
	if !ok {
		panic(fmt.Sprintf("scan: kind %d has no fixed width", kind))
	}
	return ElementType{Kind: kind, width: w}
}

// BlobType returns an opaque n-byte ElementType.
func BlobType(n int) ElementType {
	if n <= 0 {
		panic(fmt.Sprintf("scan: blob width must be positive, got %d", n))
	}
	return ElementType{Kind: KindBytes, width: n}
}

// Width returns the element width in bytes, 0 when the type is undefined.
func (t ElementType) Width() int {
	return t.width
}

// Defined reports whether the type carries a usable width.
func (t ElementType) Defined() bool {
	return t.width > 0
}

func (t ElementType) mustWidth() int {
	if t.width <= 0 {
		panic("scan: element type has no width")
	}
	return t.width
}

func (t ElementType) String() string {
	if t.Kind == KindBytes {
		if t.width == 0 {
			return "undefined"
		}
		return fmt.Sprintf("bytes:%d", t.width)
	}
	return kindNames[t.Kind]
}

// ParseElementType parses names like "uint32", "float64", or "bytes:16".
func ParseElementType(s string) (ElementType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(s, "bytes:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return ElementType{}, fmt.Errorf("invalid blob width %q", rest)
		}
		return BlobType(n), nil
	}
	for kind, name := range kindNames {
		if name == s {
			return TypeOf(kind), nil
		}
	}
	return ElementType{}, fmt.Errorf("unknown element type %q", s)
}
