package scan

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Element bytes are interpreted little-endian, the byte order of every
// target the transports read.

// Uint decodes b as this type's value, zero-extended. ok is false for
// non-unsigned kinds and for views shorter than the element width.
func (t ElementType) Uint(b []byte) (uint64, bool) {
	if len(b) < t.width {
		return 0, false
	}
	switch t.Kind {
	case KindUint8:
		return uint64(b[0]), true
	case KindUint16:
		return uint64(binary.LittleEndian.Uint16(b)), true
	case KindUint32:
		return uint64(binary.LittleEndian.Uint32(b)), true
	case KindUint64:
		return binary.LittleEndian.Uint64(b), true
	}
	return 0, false
}

// Int decodes b as this type's value, sign-extended. ok is false for
// non-signed kinds and for views shorter than the element width.
func (t ElementType) Int(b []byte) (int64, bool) {
	if len(b) < t.width {
		return 0, false
	}
	switch t.Kind {
	case KindInt8:
		return int64(int8(b[0])), true
	case KindInt16:
		return int64(int16(binary.LittleEndian.Uint16(b))), true
	case KindInt32:
		return int64(int32(binary.LittleEndian.Uint32(b))), true
	case KindInt64:
		return int64(binary.LittleEndian.Uint64(b)), true
	}
	return 0, false
}

// Float decodes b as this type's value. ok is false for non-float kinds and
// for views shorter than the element width.
func (t ElementType) Float(b []byte) (float64, bool) {
	if len(b) < t.width {
		return 0, false
	}
	switch t.Kind {
	case KindFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), true
	case KindFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
	}
	return 0, false
}

// Compare orders two element views by this type's interpretation: negative
// when a < b, zero when equal, positive when a > b. Blobs, undefined types,
// and short views order bytewise. Float NaNs order below every other value.
func (t ElementType) Compare(a, b []byte) int {
	switch t.Kind {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		ua, aok := t.Uint(a)
		ub, bok := t.Uint(b)
		if aok && bok {
			return cmp.Compare(ua, ub)
		}
	case KindInt8, KindInt16, KindInt32, KindInt64:
		ia, aok := t.Int(a)
		ib, bok := t.Int(b)
		if aok && bok {
			return cmp.Compare(ia, ib)
		}
	case KindFloat32, KindFloat64:
		fa, aok := t.Float(a)
		fb, bok := t.Float(b)
		if aok && bok {
			return cmp.Compare(fa, fb)
		}
	}
	return bytes.Compare(a, b)
}

// Format renders an element view for display. Blobs and short views render
// as hex.
func (t ElementType) Format(b []byte) string {
	if len(b) >= t.width {
		switch t.Kind {
		case KindUint8, KindUint16, KindUint32, KindUint64:
			v, _ := t.Uint(b)
			return strconv.FormatUint(v, 10)
		case KindInt8, KindInt16, KindInt32, KindInt64:
			v, _ := t.Int(b)
			return strconv.FormatInt(v, 10)
		case KindFloat32:
			return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 'g', -1, 32)
		case KindFloat64:
			return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(b)), 'g', -1, 64)
		}
	}
	return hex.EncodeToString(b)
}

// ParseValue encodes a literal as this type's bytes: decimal or 0x-prefixed
// integers range-checked to the element width, floats for float kinds, and
// exactly width hex bytes for blobs.
func (t ElementType) ParseValue(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	switch t.Kind {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		v, err := strconv.ParseUint(s, 0, t.width*8)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", t, s)
		}
		return appendWidth(nil, v, t.width), nil
	case KindInt8, KindInt16, KindInt32, KindInt64:
		v, err := strconv.ParseInt(s, 0, t.width*8)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", t, s)
		}
		return appendWidth(nil, uint64(v), t.width), nil
	case KindFloat32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", t, s)
		}
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(v))), nil
	case KindFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q", t, s)
		}
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)), nil
	case KindBytes:
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex value %q", s)
		}
		if len(b) != t.width {
			return nil, fmt.Errorf("value %q is %d bytes, element is %d", s, len(b), t.width)
		}
		return b, nil
	}
	return nil, fmt.Errorf("cannot parse value for %s", t)
}

// appendWidth writes the low width bytes of v little-endian.
func appendWidth(b []byte, v uint64, width int) []byte {
	for i := 0; i < width; i++ {
		b = append(b, byte(v>>(8*i)))
	}
	return b
}
