package pod

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type tagLabel struct {
	Slot  uint16
	Flags uint16
	Score float32
}

type notPOD struct {
	Name string
	Next *notPOD
}

type empty struct{}

func TestMarshalRoundTrip(t *testing.T) {
	in := tagLabel{Slot: 7, Flags: 0xBEEF, Score: 2.5}

	data, err := Marshal(in)
	require.NoError(t, err)
	require.Len(t, data, SizeOf[tagLabel]())

	out, err := Unmarshal[tagLabel](data)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestMarshalSliceRoundTrip(t *testing.T) {
	in := []tagLabel{
		{Slot: 1, Score: 1},
		{Slot: 2, Flags: 4},
		{},
	}

	data, err := MarshalSlice(in)
	require.NoError(t, err)
	require.Len(t, data, len(in)*SizeOf[tagLabel]())

	out, err := UnmarshalSlice[tagLabel](data, len(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestPointerTypesRejected(t *testing.T) {
	_, err := Marshal(notPOD{Name: "x"})
	require.Error(t, err)

	_, err = Unmarshal[notPOD](make([]byte, 64))
	require.Error(t, err)

	_, err = MarshalSlice([]notPOD{{}})
	require.Error(t, err)

	_, err = UnmarshalSlice[notPOD](make([]byte, 64), 1)
	require.Error(t, err)
}

func TestHasPointers(t *testing.T) {
	require.False(t, HasPointers[tagLabel]())
	require.False(t, HasPointers[uint64]())
	require.False(t, HasPointers[[4]float32]())
	require.True(t, HasPointers[notPOD]())
	require.True(t, HasPointers[string]())
	require.True(t, HasPointers[[]byte]())
	require.True(t, HasPointers[[2]*int]())
}

func TestZeroSizeType(t *testing.T) {
	require.Zero(t, SizeOf[empty]())

	data, err := Marshal(empty{})
	require.NoError(t, err)
	require.Empty(t, data)

	_, err = Unmarshal[empty](nil)
	require.NoError(t, err)

	out, err := UnmarshalSlice[empty](nil, 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestShortBuffer(t *testing.T) {
	_, err := Unmarshal[tagLabel](make([]byte, 2))
	require.Error(t, err)

	_, err = UnmarshalSlice[uint32](make([]byte, 7), 2)
	require.Error(t, err)

	_, err = UnmarshalSlice[uint32](nil, -1)
	require.Error(t, err)
}
