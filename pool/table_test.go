package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAllocateAndGet(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	defer tbl.Close()

	require.True(t, tbl.Allocate("archive", 2))
	assert.False(t, tbl.Allocate("archive", 8), "names are unique")
	require.True(t, tbl.Allocate("io", 0))

	p, ok := tbl.Get("archive")
	require.True(t, ok)
	assert.Equal(t, 2, p.Size())

	p, ok = tbl.Get("io")
	require.True(t, ok)
	assert.Equal(t, 1, p.Size())

	_, ok = tbl.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"archive", "io"}, tbl.Names())
}

func TestTablesAreIndependent(t *testing.T) {
	t.Parallel()

	a := NewTable()
	b := NewTable()
	defer a.Close()
	defer b.Close()

	require.True(t, a.Allocate("shared", 1))
	require.True(t, b.Allocate("shared", 1))

	pa, _ := a.Get("shared")
	pb, _ := b.Get("shared")
	assert.NotSame(t, pa, pb)
}

func TestTableClose(t *testing.T) {
	t.Parallel()

	tbl := NewTable()
	require.True(t, tbl.Allocate("archive", 1))
	p, _ := tbl.Get("archive")

	require.NoError(t, tbl.Close())
	require.ErrorIs(t, p.Submit(func() {}), ErrClosed)
	assert.False(t, tbl.Allocate("archive", 1))
	assert.Empty(t, tbl.Names())
}
