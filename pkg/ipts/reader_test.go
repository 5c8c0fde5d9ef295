package ipts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0xFF, 0xFF})

	v8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), v8)

	v16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0302), v16)

	require.NoError(t, r.Skip(2))

	i16, err := r.I16()
	require.NoError(t, err)
	assert.Equal(t, int16(-1), i16)

	assert.Zero(t, r.Remaining())
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})

	_, err := r.U32()
	require.Error(t, err)

	// The failed read must not consume anything.
	assert.Equal(t, 2, r.Remaining())

	v, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v)
}

func TestReaderSub(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04})

	sub, err := r.Sub(3)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.Remaining())
	assert.Equal(t, 1, r.Remaining())

	_, err = r.Sub(2)
	assert.Error(t, err)
}
