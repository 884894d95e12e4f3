package rootfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBlocks(t *testing.T, blocks int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rootfs.img")
	buf := bytes.Repeat([]byte{0xAB}, BlockSize*blocks)
	require.NoError(t, os.WriteFile(path, buf, 0o644))
	return path
}

func TestBuildHashTree_LeafCountMatchesBlocks(t *testing.T) {
	path := writeBlocks(t, 3)
	tree, err := BuildHashTree(path)
	require.NoError(t, err)
	assert.Len(t, tree.Leaves, 3)
	assert.NotEmpty(t, tree.Root)
}

func TestBuildHashTree_Deterministic(t *testing.T) {
	path := writeBlocks(t, 5)
	a, err := BuildHashTree(path)
	require.NoError(t, err)
	b, err := BuildHashTree(path)
	require.NoError(t, err)
	assert.Equal(t, a.Root, b.Root)
}

func TestVerifyHashTree_DetectsTamper(t *testing.T) {
	path := writeBlocks(t, 4)
	tree, err := BuildHashTree(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	err = VerifyHashTree(path, tree.Root)
	assert.True(t, errors.Is(err, ErrHashTreeMismatch))
}

func TestVerifyHashTree_AcceptsUnmodifiedImage(t *testing.T) {
	path := writeBlocks(t, 2)
	tree, err := BuildHashTree(path)
	require.NoError(t, err)
	assert.NoError(t, VerifyHashTree(path, tree.Root))
}

func TestSaveAndLoadHashTree_RoundTrips(t *testing.T) {
	path := writeBlocks(t, 2)
	tree, err := BuildHashTree(path)
	require.NoError(t, err)

	savePath := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, SaveHashTree(tree, savePath))

	loaded, err := LoadHashTree(savePath)
	require.NoError(t, err)
	assert.Equal(t, tree.Root, loaded.Root)
}

func TestLoadHashTree_MissingFile(t *testing.T) {
	_, err := LoadHashTree(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, ErrHashTreeMissing))
}

func TestFoldRoot_OddLeafCountDuplicatesTrailing(t *testing.T) {
	root := foldRoot([]string{"a", "b", "c"})
	assert.NotEmpty(t, root)
	// folding [a,b,c] -> [h(ab), h(cc)] -> h(h(ab)h(cc)); verify determinism
	root2 := foldRoot([]string{"a", "b", "c"})
	assert.Equal(t, root, root2)
}
