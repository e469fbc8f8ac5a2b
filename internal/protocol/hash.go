package protocol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// HashSize is the size of a protocol hash in bytes.
const HashSize = 32

// Hash is a 32-byte blake3 digest. It is the single hash type used for
// state hashes, transaction hashes, request IDs and merkle nodes.
type Hash [HashSize]byte

// Sum computes the blake3 hash of data.
func Sum(data []byte) Hash {
	return blake3.Sum256(data)
}

// SumConcat computes the blake3 hash of the concatenation of all parts.
func SumConcat(parts ...[]byte) Hash {
	h := blake3.New()
	for _, p := range parts {
		h.Write(p)
	}

	var out Hash
	h.Sum(out[:0])

	return out
}

// IsZero reports whether the hash is all zero bytes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the full hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 8 hex characters, for log output.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:4])
}

// ParseHash decodes a 64-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash: %q", s)
	}

	var h Hash
	copy(h[:], b)

	return h, nil
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes the hash from a hex string.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseHash(s)
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// HexBytes is a byte slice that JSON-encodes as a hex string.
// Used for signatures and public keys in the package file and API payloads.
type HexBytes []byte

// MarshalJSON encodes the bytes as a hex string.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

// UnmarshalJSON decodes the bytes from a hex string.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex bytes:\n%w", err)
	}

	*b = decoded

	return nil
}
