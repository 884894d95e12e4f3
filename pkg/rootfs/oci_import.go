package rootfs

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/ironclaw/runtime/internal/errx"
)

// Importer pulls OCI images and flattens them into rootfs images usable as
// a VmConfig.RootfsPath, recording each import in a local Catalog.
type Importer struct {
	catalog *Catalog
	destDir string
}

// NewImporter builds an Importer that writes flattened rootfs images under
// destDir and records them in catalog.
func NewImporter(catalog *Catalog, destDir string) *Importer {
	return &Importer{catalog: catalog, destDir: destDir}
}

// Import pulls the OCI image at ref, flattens every layer into a single
// filesystem tar (later layers winning over earlier ones on path conflict,
// matching OCI layer semantics), writes that tar to destDir/<tag>.img as the
// rootfs image, and records the result as tag in the catalog.
func (imp *Importer) Import(ctx context.Context, ref, tag string) (*Asset, error) {
	reference, err := name.ParseReference(ref)
	if err != nil {
		return nil, errx.Wrap(ErrOCIPull, err)
	}

	img, err := remote.Image(reference,
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
		remote.WithContext(ctx),
	)
	if err != nil {
		return nil, errx.Wrap(ErrOCIPull, err)
	}

	digest, err := img.Digest()
	if err != nil {
		return nil, errx.Wrap(ErrOCIPull, err)
	}

	rootfsPath, err := imp.flatten(img, tag)
	if err != nil {
		return nil, err
	}

	asset := Asset{
		Tag:        tag,
		Digest:     digest.String(),
		RootfsPath: rootfsPath,
		ImportedAt: time.Now().UTC(),
	}
	if err := imp.catalog.Put(asset); err != nil {
		os.Remove(rootfsPath)
		return nil, err
	}
	return &asset, nil
}

// flatten writes img's merged filesystem contents, as produced by
// mutate.Extract, to destDir/<tag>.img.
func (imp *Importer) flatten(img v1.Image, tag string) (string, error) {
	if err := os.MkdirAll(imp.destDir, 0700); err != nil {
		return "", errx.Wrap(ErrOCIExtract, err)
	}

	reader := mutate.Extract(img)
	defer reader.Close()

	destPath := imp.destDir + "/" + tag + ".img"
	out, err := os.Create(destPath)
	if err != nil {
		return "", errx.Wrap(ErrOCIExtract, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		os.Remove(destPath)
		return "", errx.Wrap(ErrOCIExtract, err)
	}
	return destPath, nil
}
