// Package pod copies plain-old-data values to and from their raw in-memory
// bytes. The encoding is the machine layout of T, so it is only meaningful
// when written and read on the same architecture; callers that persist pod
// bytes record SizeOf in their file format and verify it on load.
package pod

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

// SizeOf returns the in-memory size of T in bytes, padding included.
func SizeOf[T any]() int {
	var t T
	return int(unsafe.Sizeof(t))
}

// HasPointers reports whether T (recursively) contains any pointer-like
// fields. Such a type is not POD: its bytes reference Go-managed memory and
// are useless outside the process that produced them.
func HasPointers[T any]() bool {
	return typeHasPointers(reflect.TypeFor[T]())
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// bool, ints, uints, floats, complex, etc.
		return false
	}
}

// Marshal serializes a POD value into a raw byte slice using the in-memory
// layout. This uses unsafe to copy the raw bytes directly.
func Marshal[T any](v T) ([]byte, error) {
	if HasPointers[T]() {
		return nil, fmt.Errorf("pod: %s contains pointers", reflect.TypeFor[T]())
	}
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&v)), size))
	return out, nil
}

// Unmarshal copies the first SizeOf[T] bytes from data into a new T.
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if HasPointers[T]() {
		return v, fmt.Errorf("pod: %s contains pointers", reflect.TypeFor[T]())
	}
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return v, nil
	}
	if len(data) < size {
		return v, fmt.Errorf("pod: need %d bytes for %s, have %d", size, reflect.TypeFor[T](), len(data))
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), size), data[:size])
	return v, nil
}

// MarshalSlice serializes a slice of POD values back to back, SizeOf[T]
// bytes per element.
func MarshalSlice[T any](vs []T) ([]byte, error) {
	if HasPointers[T]() {
		return nil, fmt.Errorf("pod: %s contains pointers", reflect.TypeFor[T]())
	}
	size := SizeOf[T]()
	if size == 0 || len(vs) == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size*len(vs))
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(out)))
	return out, nil
}

// UnmarshalSlice parses count back-to-back POD values from data.
func UnmarshalSlice[T any](data []byte, count int) ([]T, error) {
	if count < 0 {
		return nil, errors.New("pod: count must be positive")
	}
	if HasPointers[T]() {
		return nil, fmt.Errorf("pod: %s contains pointers", reflect.TypeFor[T]())
	}
	vs := make([]T, count)
	size := SizeOf[T]()
	if size == 0 || count == 0 {
		return vs, nil
	}
	need := size * count
	if len(data) < need {
		return nil, fmt.Errorf("pod: need %d bytes for %d of %s, have %d", need, count, reflect.TypeFor[T](), len(data))
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), need), data[:need])
	return vs, nil
}
