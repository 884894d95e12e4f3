package rootfs

import "github.com/ironclaw/runtime/internal/errx"

// IntegrityConfig names the optional checks VerifyIntegrity should run; a
// zero-value config performs no checks.
type IntegrityConfig struct {
	SignaturePath string
	PublicKeyPath string
	HashTreePath  string
}

// VerifyIntegrity runs every check cfg enables and fails closed: the first
// configured check that fails aborts with its error. The signature check and
// the hash-tree check are not independent of each other — the hash-tree
// check has no trust anchor of its own, so it borrows the root that the
// signature check already verified. Requesting a hash-tree check without a
// verified signature is a configuration error, not a silently-skipped check.
func VerifyIntegrity(rootfsPath string, cfg IntegrityConfig) error {
	var sig *Signature

	if cfg.SignaturePath != "" && cfg.PublicKeyPath != "" {
		loaded, err := LoadSignature(cfg.SignaturePath)
		if err != nil {
			return err
		}
		pub, err := LoadPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return err
		}
		if err := VerifyRootfs(rootfsPath, loaded, pub); err != nil {
			return err
		}
		sig = loaded
	}

	if cfg.HashTreePath != "" {
		if sig == nil || sig.HashTreeRoot == "" {
			return ErrHashTreeUnsigned
		}

		// The sidecar is unsigned and untrusted; cross-checking it against
		// the signed root catches sidecar-only tampering early, but the
		// root comparison below against the recomputed image tree is what
		// actually anchors the check.
		tree, err := LoadHashTree(cfg.HashTreePath)
		if err != nil {
			return err
		}
		if tree.Root != sig.HashTreeRoot {
			return errx.With(ErrHashTreeMismatch, ": hash tree sidecar root %s does not match signed root %s", tree.Root, sig.HashTreeRoot)
		}

		if err := VerifyHashTree(rootfsPath, sig.HashTreeRoot); err != nil {
			return err
		}
	}

	return nil
}
