package protocol

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/zeebo/blake3"
)

const (
	// PublicKeySize is the size of an owner public key in bytes.
	PublicKeySize = ed25519.PublicKeySize

	// SignatureSize is the size of an owner signature in bytes.
	SignatureSize = ed25519.SignatureSize

	// SeedSize is the size of a signing key seed in bytes.
	SeedSize = ed25519.SeedSize
)

// maskedKeyDomain separates one-time key derivation from other blake3 uses.
var maskedKeyDomain = []byte("ambervault-masked-key")

// Signer holds an Ed25519 keypair used to sign transfer commitments.
type Signer struct {
	priv ed25519.PrivateKey // priv is the Ed25519 private key
	pub  ed25519.PublicKey  // pub is the derived public key
}

// NewSigner creates a signer from a 32-byte seed.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed size: got %d, want %d", len(seed), SeedSize)
	}

	priv := ed25519.NewKeyFromSeed(seed)

	return &Signer{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// GenerateSigner creates a signer with a fresh random keypair.
func GenerateSigner() (*Signer, error) {
	var seed [SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("generate seed:\n%w", err)
	}

	return NewSigner(seed[:])
}

// DeriveMaskedSigner derives a one-time signer from a base seed and a nonce.
// The derived key is blake3(domain || seed || nonce), used as an Ed25519 seed.
// The same (seed, nonce) pair always yields the same key.
func DeriveMaskedSigner(seed, nonce []byte) (*Signer, error) {
	h := blake3.New()
	h.Write(maskedKeyDomain)
	h.Write(seed)
	h.Write(nonce)

	var derived [SeedSize]byte
	h.Sum(derived[:0])

	return NewSigner(derived[:])
}

// PublicKey returns the signer's public key bytes.
func (s *Signer) PublicKey() []byte {
	return []byte(s.pub)
}

// Sign signs the blake3 hash of the payload and returns the signature.
func (s *Signer) Sign(payload []byte) []byte {
	digest := Sum(payload)
	return ed25519.Sign(s.priv, digest[:])
}

// SignDigest signs an already-computed digest.
func (s *Signer) SignDigest(digest Hash) []byte {
	return ed25519.Sign(s.priv, digest[:])
}

// MatchesPublicKey reports whether the signer's public key equals pub byte-for-byte.
func (s *Signer) MatchesPublicKey(pub []byte) bool {
	return bytes.Equal(s.pub, pub)
}

// VerifySignature checks a signature over the blake3 hash of the payload.
func VerifySignature(publicKey, payload, signature []byte) bool {
	digest := Sum(payload)
	return VerifyDigestSignature(publicKey, digest, signature)
}

// VerifyDigestSignature checks a signature over an already-computed digest.
func VerifyDigestSignature(publicKey []byte, digest Hash, signature []byte) bool {
	if len(publicKey) != PublicKeySize || len(signature) != SignatureSize {
		return false
	}

	return ed25519.Verify(ed25519.PublicKey(publicKey), digest[:], signature)
}
