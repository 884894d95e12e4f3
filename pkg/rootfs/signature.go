package rootfs

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/ironclaw/runtime/internal/errx"
)

// Signature is the detached signature record carried alongside a rootfs
// image: a SHA-256 checksum of the image bytes, the root of its fixed-block
// Merkle hash tree (empty when no hash tree was produced), an Ed25519
// signature over both, a key identifier, and the time it was produced.
type Signature struct {
	KeyID        string    `cbor:"key_id"`
	Checksum     string    `cbor:"checksum"` // hex-encoded SHA-256
	HashTreeRoot string    `cbor:"hash_tree_root,omitempty"`
	Signature    []byte    `cbor:"signature"`
	Timestamp    time.Time `cbor:"timestamp"`
}

// signedMessage is the byte string an Ed25519 signature actually commits
// to: the image checksum concatenated with the hash-tree root, binding
// both integrity artifacts under one signature so neither can be swapped
// independently of the other.
func signedMessage(checksum, hashTreeRoot string) []byte {
	return []byte(checksum + hashTreeRoot)
}

// KeyPair is an Ed25519 signing identity for rootfs images.
type KeyPair struct {
	KeyID      string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a new Ed25519 signing identity.
func GenerateKeyPair(keyID string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{KeyID: keyID, PublicKey: pub, PrivateKey: priv}, nil
}

// Checksum computes the hex-encoded SHA-256 checksum of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errx.Wrap(ErrReadRootfs, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errx.Wrap(ErrReadRootfs, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SignRootfs computes the checksum of the image at rootfsPath and produces
// a real Ed25519 signature over it and hashTreeRoot (the root of the image's
// fixed-block Merkle hash tree, or "" when none was built), writing the
// resulting sidecar record to sigPath as CBOR. Committing the hash-tree root
// into the signed record is what lets VerifyIntegrity trust it later instead
// of taking it from the unsigned hash-tree sidecar.
func SignRootfs(rootfsPath, sigPath string, kp *KeyPair, hashTreeRoot string) (*Signature, error) {
	checksum, err := Checksum(rootfsPath)
	if err != nil {
		return nil, err
	}

	sig := ed25519.Sign(kp.PrivateKey, signedMessage(checksum, hashTreeRoot))
	record := &Signature{
		KeyID:        kp.KeyID,
		Checksum:     checksum,
		HashTreeRoot: hashTreeRoot,
		Signature:    sig,
		Timestamp:    time.Now().UTC(),
	}

	data, err := cbor.Marshal(record)
	if err != nil {
		return nil, errx.Wrap(ErrWriteSidecar, err)
	}
	if err := os.WriteFile(sigPath, data, 0o644); err != nil {
		return nil, errx.Wrap(ErrWriteSidecar, err)
	}
	return record, nil
}

// LoadSignature reads and decodes a CBOR signature sidecar.
func LoadSignature(sigPath string) (*Signature, error) {
	data, err := os.ReadFile(sigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSignatureMissing
		}
		return nil, errx.Wrap(ErrReadSidecar, err)
	}
	var sig Signature
	if err := cbor.Unmarshal(data, &sig); err != nil {
		return nil, errx.Wrap(ErrReadSidecar, err)
	}
	return &sig, nil
}

// VerifyRootfs recomputes the SHA-256 checksum of the image at rootfsPath,
// confirms it matches the checksum recorded in sig, then verifies sig's
// Ed25519 signature over that checksum and sig's hash-tree root against pub.
// Both checks must pass; this performs the actual cryptographic
// verification rather than a checksum-only placeholder.
func VerifyRootfs(rootfsPath string, sig *Signature, pub ed25519.PublicKey) error {
	checksum, err := Checksum(rootfsPath)
	if err != nil {
		return err
	}
	if checksum != sig.Checksum {
		return errx.With(ErrChecksumMismatch, ": expected %s, got %s", sig.Checksum, checksum)
	}
	if !ed25519.Verify(pub, signedMessage(sig.Checksum, sig.HashTreeRoot), sig.Signature) {
		return errx.With(ErrSignatureInvalid, ": key_id=%s", sig.KeyID)
	}
	return nil
}

// LoadPublicKey reads a raw 32-byte Ed25519 public key from path.
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errx.Wrap(ErrReadSidecar, err)
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, errx.With(ErrSignatureInvalid, ": public key at %s is %d bytes, want %d", path, len(data), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(data), nil
}
