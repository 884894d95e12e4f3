// Package rootfs decides, before a VM may boot, whether its rootfs image is
// authentic and unmodified, and manages the writable /tmp overlay and the
// local catalog of imported OCI assets.
package rootfs

import "errors"

var (
	ErrChecksumMismatch  = errors.New("rootfs checksum does not match signature record")
	ErrSignatureInvalid  = errors.New("rootfs signature verification failed")
	ErrHashTreeMismatch  = errors.New("rootfs hash tree does not match computed tree")
	ErrHashTreeMissing   = errors.New("hash tree file not found")
	ErrHashTreeUnsigned  = errors.New("hash tree check requires a verified signature to supply the trusted root")
	ErrSignatureMissing  = errors.New("signature file not found")
	ErrReadRootfs        = errors.New("failed to read rootfs image")
	ErrWriteSidecar      = errors.New("failed to write signature sidecar")
	ErrReadSidecar       = errors.New("failed to read signature sidecar")
	ErrOverlayMount      = errors.New("failed to mount overlay")
	ErrOverlayUnmount    = errors.New("failed to unmount overlay")
	ErrCatalogOpen       = errors.New("failed to open asset catalog")
	ErrCatalogQuery      = errors.New("asset catalog query failed")
	ErrAssetNotFound     = errors.New("asset not found in catalog")
	ErrOCIPull           = errors.New("failed to pull OCI image")
	ErrOCIExtract        = errors.New("failed to extract OCI image layers")
)
