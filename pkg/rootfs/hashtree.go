package rootfs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"

	"github.com/ironclaw/runtime/internal/errx"
)

// BlockSize is the fixed block size hashed at the leaf level of the Merkle
// tree, matching the common dm-verity default.
const BlockSize = 4096

// HashTree is the serialised form of a fixed-block Merkle hash tree over a
// rootfs image: one leaf hash per BlockSize-byte block, folded pairwise up
// to a single root hash.
type HashTree struct {
	BlockSize int      `json:"block_size"`
	Leaves    []string `json:"leaves"` // hex SHA-256, one per block
	Root      string   `json:"root"`   // hex SHA-256
}

// BuildHashTree reads path in BlockSize chunks, hashes each block, and folds
// the leaf hashes pairwise (duplicating the last leaf when the level has an
// odd count) until a single root hash remains.
func BuildHashTree(path string) (*HashTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.Wrap(ErrReadRootfs, err)
	}
	defer f.Close()

	var leaves []string
	buf := make([]byte, BlockSize)
	for {
		n, err := io.ReadFull(f, buf)
		if n > 0 {
			h := sha256.Sum256(buf[:n])
			leaves = append(leaves, hex.EncodeToString(h[:]))
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, errx.Wrap(ErrReadRootfs, err)
		}
	}

	root := foldRoot(leaves)
	return &HashTree{BlockSize: BlockSize, Leaves: leaves, Root: root}, nil
}

// foldRoot folds a level of hex-encoded hashes pairwise up to a single root,
// duplicating the trailing hash at each level that has an odd count.
func foldRoot(level []string) string {
	if len(level) == 0 {
		h := sha256.Sum256(nil)
		return hex.EncodeToString(h[:])
	}
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			h := sha256.Sum256([]byte(left + right))
			next = append(next, hex.EncodeToString(h[:]))
		}
		level = next
	}
	return level[0]
}

// SaveHashTree writes tree as JSON to path.
func SaveHashTree(tree *HashTree, path string) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadHashTree reads a JSON-encoded HashTree from path.
func LoadHashTree(path string) (*HashTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrHashTreeMissing
		}
		return nil, err
	}
	var tree HashTree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// VerifyHashTree recomputes the Merkle hash tree over the image at
// rootfsPath and confirms its root matches wantRoot exactly (leaf-by-leaf
// comparison is implied by the root hash, so a single mismatch anywhere in
// the image is caught without re-scanning leaf-by-leaf). wantRoot must come
// from a source the caller already trusts — the signed Signature record,
// never the unsigned hash-tree sidecar's own declared root.
func VerifyHashTree(rootfsPath string, wantRoot string) error {
	got, err := BuildHashTree(rootfsPath)
	if err != nil {
		return err
	}
	if got.Root != wantRoot {
		return errx.With(ErrHashTreeMismatch, ": expected root %s, got %s", wantRoot, got.Root)
	}
	return nil
}
