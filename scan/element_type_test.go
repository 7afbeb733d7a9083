package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestElementTypeWidth(t *testing.T) {
	for _, tc := range []struct {
		typ   ElementType
		width int
	}{
		{TypeOf(KindUint8), 1},
		{TypeOf(KindInt8), 1},
		{TypeOf(KindUint16), 2},
		{TypeOf(KindInt16), 2},
		{TypeOf(KindUint32), 4},
		{TypeOf(KindInt32), 4},
		{TypeOf(KindFloat32), 4},
		{TypeOf(KindUint64), 8},
		{TypeOf(KindInt64), 8},
		{TypeOf(KindFloat64), 8},
		{BlobType(16), 16},
		{BlobType(1), 1},
	} {
		t.Run(tc.typ.String(), func(t *testing.T) {
			require.True(t, tc.typ.Defined())
			require.Equal(t, tc.width, tc.typ.Width())
		})
	}
}

func TestElementTypeZeroValue(t *testing.T) {
	var undef ElementType
	require.False(t, undef.Defined())
	require.Equal(t, "undefined", undef.String())
	require.Panics(t, func() { undef.mustWidth() })
}

func TestElementTypeConstructorPanics(t *testing.T) {
	require.Panics(t, func() { TypeOf(KindBytes) })
	require.Panics(t, func() { BlobType(0) })
	require.Panics(t, func() { BlobType(-4) })
}

func TestParseElementType(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ElementType
	}{
		{"uint8", TypeOf(KindUint8)},
		{"int8", TypeOf(KindInt8)},
		{"uint16", TypeOf(KindUint16)},
		{"int16", TypeOf(KindInt16)},
		{"uint32", TypeOf(KindUint32)},
		{"int32", TypeOf(KindInt32)},
		{"uint64", TypeOf(KindUint64)},
		{"int64", TypeOf(KindInt64)},
		{"float32", TypeOf(KindFloat32)},
		{"float64", TypeOf(KindFloat64)},
		{"bytes:16", BlobType(16)},
		{"bytes:1", BlobType(1)},
		{"Float64", TypeOf(KindFloat64)},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseElementType(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)

			// String form parses back to the same type.
			again, err := ParseElementType(got.String())
			require.NoError(t, err)
			require.Equal(t, got, again)
		})
	}
}

func TestParseElementTypeRejects(t *testing.T) {
	for _, in := range []string{"", "uint12", "bytes", "bytes:", "bytes:0", "bytes:-3", "bytes:abc", "string"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseElementType(in)
			require.Error(t, err)
		})
	}
}
