package platform

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRegular(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("real"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	defer root.Close()

	got, err := ReadRegular(root, "real.txt")
	require.NoError(t, err)
	assert.Equal(t, "real", string(got))

	got, err = ReadRegular(root, "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadRegular(root, "missing.txt")
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = ReadRegular(root, "sub")
	require.ErrorIs(t, err, ErrNotRegular)
}
