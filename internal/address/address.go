// Package address implements the text encoding of recipient addresses.
//
// An address is the bech32 encoding of a predicate hash: the hash of the
// ownership condition the recipient will unlock the token with. The sender
// never learns the recipient's public key from an address, only the
// commitment to it.
package address

import (
	"fmt"

	"github.com/decred/dcrd/bech32"

	"AmberVault/internal/protocol"
)

// HRP is the human-readable prefix of token addresses.
const HRP = "amber"

// Address is a parsed recipient address.
type Address struct {
	HRP           string        // HRP is the human-readable prefix ("amber")
	PredicateHash protocol.Hash // PredicateHash commits to the recipient's ownership condition
}

// Encode produces the bech32 text form of a predicate hash.
func Encode(predicateHash protocol.Hash) (string, error) {
	converted, err := bech32.ConvertBits(predicateHash[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits:\n%w", err)
	}

	encoded, err := bech32.Encode(HRP, converted)
	if err != nil {
		return "", fmt.Errorf("bech32 encode:\n%w", err)
	}

	return encoded, nil
}

// Parse decodes and checksums an address string.
func Parse(text string) (*Address, error) {
	hrp, data, err := bech32.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("bech32 decode:\n%w", err)
	}

	if hrp != HRP {
		return nil, fmt.Errorf("wrong address prefix %q, want %q", hrp, HRP)
	}

	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("convert bits:\n%w", err)
	}

	if len(decoded) != protocol.HashSize {
		return nil, fmt.Errorf("address payload is %d bytes, want %d", len(decoded), protocol.HashSize)
	}

	addr := &Address{HRP: hrp}
	copy(addr.PredicateHash[:], decoded)

	return addr, nil
}

// IsValid reports whether text parses as a well-formed address.
// Used as a gate before building a commitment.
func IsValid(text string) bool {
	_, err := Parse(text)
	return err == nil
}
