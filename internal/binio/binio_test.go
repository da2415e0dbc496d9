package binio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pameecs/peac/internal/peactype"
)

func TestCursorReadsWhatBufferWrites(t *testing.T) {
	t.Parallel()

	w := NewBuffer(0)
	w.U8(0xAB)
	w.U16(0x1234)
	w.U32(0xDEADBEEF)
	w.U64(0x0102030405060708)
	w.Write([]byte("name"))
	require.Equal(t, 1+2+4+8+4, w.Len())

	// Little-endian on the wire.
	assert.Equal(t, []byte{0x34, 0x12}, w.Bytes()[1:3])

	c := NewCursor(w.Bytes())
	u8, err := c.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)
	u16, err := c.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)
	u32, err := c.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)
	u64, err := c.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)
	name, err := c.Bytes(4)
	require.NoError(t, err)
	assert.Equal(t, "name", string(name))
	assert.Zero(t, c.Remaining())
	assert.Equal(t, w.Len(), c.Offset())
}

func TestCursorBounds(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte{1, 2, 3})
	_, err := c.U32()
	require.ErrorIs(t, err, peactype.ErrBounds)
	// A failed read does not advance.
	assert.Equal(t, 0, c.Offset())

	_, err = c.U16()
	require.NoError(t, err)
	_, err = c.U16()
	require.ErrorIs(t, err, peactype.ErrBounds)
	_, err = c.Bytes(-1)
	require.ErrorIs(t, err, peactype.ErrBounds)
	_, err = c.U8()
	require.NoError(t, err)
	_, err = c.U8()
	require.ErrorIs(t, err, peactype.ErrBounds)
}
