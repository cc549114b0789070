package binary

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReader_ReadU32(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadU32()
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
		require.True(t, r.AtEOF())
	}
}

func TestReader_ReadS32_SignExtends(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    int32
	}{
		{[]byte{0x7f}, -1},
		{[]byte{0x40}, -64},
		{[]byte{0xc0, 0x00}, 64},
	}
	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadS32()
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}

func TestReader_ReadU32_OverflowsPastFiveBytes(t *testing.T) {
	r := NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	_, err := r.ReadU32()
	require.Error(t, err)
}

func TestReader_ReadName_RejectsInvalidUTF8(t *testing.T) {
	r := NewReader([]byte{0x02, 0xff, 0xfe})
	_, err := r.ReadName()
	require.Error(t, err)
}

func TestReader_Sub_BoundsTheChildReader(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04})
	sub, err := r.Sub(2)
	require.NoError(t, err)
	require.Equal(t, 2, sub.Len())
	require.Equal(t, 2, r.Len())
}
