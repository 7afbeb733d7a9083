package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueDecode(t *testing.T) {
	u32 := TypeOf(KindUint32)
	v, ok := u32.Uint([]byte{0x01, 0x02, 0x00, 0x00})
	require.True(t, ok)
	require.Equal(t, uint64(0x201), v)

	_, ok = u32.Uint([]byte{0x01, 0x02})
	require.False(t, ok, "short view")
	_, ok = u32.Int([]byte{0x01, 0x02, 0x00, 0x00})
	require.False(t, ok, "wrong kind")

	i16 := TypeOf(KindInt16)
	iv, ok := i16.Int([]byte{0xFF, 0xFF})
	require.True(t, ok)
	require.Equal(t, int64(-1), iv)

	f32 := TypeOf(KindFloat32)
	fv, ok := f32.Float(f32.mustParse(t, "2.5"))
	require.True(t, ok)
	require.Equal(t, 2.5, fv)
}

func TestValueCompare(t *testing.T) {
	for _, tc := range []struct {
		name string
		t    ElementType
		a, b string
		want int
	}{
		{"uint equal", TypeOf(KindUint32), "7", "7", 0},
		{"uint less", TypeOf(KindUint32), "7", "8", -1},
		{"uint wraps above int range", TypeOf(KindUint8), "200", "100", 1},
		{"int sign order", TypeOf(KindInt32), "-1", "1", -1},
		{"int negative pair", TypeOf(KindInt8), "-5", "-9", 1},
		{"float order", TypeOf(KindFloat64), "1.25", "1.5", -1},
		{"float negative", TypeOf(KindFloat32), "-0.5", "0.25", -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.t.mustParse(t, tc.a)
			b := tc.t.mustParse(t, tc.b)
			got := tc.t.Compare(a, b)
			switch {
			case tc.want < 0:
				require.Negative(t, got)
			case tc.want > 0:
				require.Positive(t, got)
			default:
				require.Zero(t, got)
			}
		})
	}

	// Net effect of byte comparison for blobs.
	blob := BlobType(3)
	require.Negative(t, blob.Compare([]byte{1, 2, 3}, []byte{1, 2, 4}))
	require.Zero(t, blob.Compare([]byte{9, 9, 9}, []byte{9, 9, 9}))

	// NaN sorts below every number.
	f64 := TypeOf(KindFloat64)
	nan := f64.mustParse(t, "NaN")
	_, ok := f64.Float(nan)
	require.True(t, ok)
	require.Negative(t, f64.Compare(nan, f64.mustParse(t, "-1e300")))
}

func TestValueFormat(t *testing.T) {
	require.Equal(t, "513", TypeOf(KindUint16).Format([]byte{0x01, 0x02}))
	require.Equal(t, "-1", TypeOf(KindInt8).Format([]byte{0xFF}))

	f32 := TypeOf(KindFloat32)
	require.Equal(t, "2.5", f32.Format(f32.mustParse(t, "2.5")))

	require.Equal(t, "0102ff", BlobType(3).Format([]byte{0x01, 0x02, 0xFF}))
	require.Equal(t, "0102", TypeOf(KindUint32).Format([]byte{0x01, 0x02}), "short views fall back to hex")
}

func TestParseValue(t *testing.T) {
	u8 := TypeOf(KindUint8)
	b, err := u8.ParseValue("255")
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF}, b)

	_, err = u8.ParseValue("256")
	require.Error(t, err, "out of range for width")
	_, err = u8.ParseValue("-1")
	require.Error(t, err)

	b, err = TypeOf(KindUint32).ParseValue("0x1000")
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x10, 0x00, 0x00}, b)

	b, err = TypeOf(KindInt16).ParseValue("-2")
	require.NoError(t, err)
	require.Equal(t, []byte{0xFE, 0xFF}, b)

	blob := BlobType(2)
	b, err = blob.ParseValue("0xBEEF")
	require.NoError(t, err)
	require.Equal(t, []byte{0xBE, 0xEF}, b)
	_, err = blob.ParseValue("BEEFBEEF")
	require.Error(t, err, "wrong width")
	_, err = blob.ParseValue("zz")
	require.Error(t, err)

	f64 := TypeOf(KindFloat64)
	b, err = f64.ParseValue("1.5")
	require.NoError(t, err)
	v, ok := f64.Float(b)
	require.True(t, ok)
	require.Equal(t, 1.5, v)

	_, err = ElementType{}.ParseValue("1")
	require.Error(t, err, "undefined type")
}

func (t ElementType) mustParse(tb testing.TB, s string) []byte {
	tb.Helper()
	b, err := t.ParseValue(s)
	require.NoError(tb, err)
	return b
}
