// Package token defines the offchain token data model: ownership
// predicates, token states, the append-only transaction history and the
// derived local status.
package token

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"AmberVault/internal/protocol"
)

// PredicateType selects the unlock rule of an ownership condition.
type PredicateType string

const (
	// PredicateUnmasked is a deterministic, reusable public-key predicate.
	PredicateUnmasked PredicateType = "unmasked"

	// PredicateMasked is a one-time predicate whose key is derived from a
	// secret nonce. The same base key never appears twice on the tree.
	PredicateMasked PredicateType = "masked"
)

// predicate type tags used in the deterministic encoding.
const (
	predicateTagUnmasked byte = 0
	predicateTagMasked   byte = 1
)

// SaltSize is the size of commitment and mint salts in bytes.
const SaltSize = 32

// genesisDomain separates genesis source-state hashes from real state hashes.
var genesisDomain = []byte("ambervault-genesis")

// Predicate is an ownership condition embedding a public key and an
// unlock rule.
type Predicate struct {
	Type      PredicateType     `json:"type"`      // Type is the unlock rule
	PublicKey protocol.HexBytes `json:"publicKey"` // PublicKey unlocks the state
}

// Encode returns the deterministic binary form of the predicate.
// Format: 1-byte type tag + u32 key length (LE) + key bytes.
func (p *Predicate) Encode() []byte {
	tag := predicateTagUnmasked
	if p.Type == PredicateMasked {
		tag = predicateTagMasked
	}

	buf := make([]byte, 1+4+len(p.PublicKey))
	buf[0] = tag
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(p.PublicKey)))
	copy(buf[5:], p.PublicKey)

	return buf
}

// Hash returns the blake3 hash of the encoded predicate.
// Addresses commit to this value.
func (p *Predicate) Hash() protocol.Hash {
	return protocol.Sum(p.Encode())
}

// Validate checks the predicate shape.
func (p *Predicate) Validate() error {
	if p.Type != PredicateUnmasked && p.Type != PredicateMasked {
		return fmt.Errorf("unknown predicate type %q", p.Type)
	}

	if len(p.PublicKey) != protocol.PublicKeySize {
		return fmt.Errorf("predicate public key is %d bytes, want %d", len(p.PublicKey), protocol.PublicKeySize)
	}

	return nil
}

// State is one immutable ownership state of a token. States are replaced,
// never mutated, as transactions are accepted.
type State struct {
	Predicate Predicate         `json:"predicate"`      // Predicate is the ownership condition
	Data      protocol.HexBytes `json:"data,omitempty"` // Data is optional application payload
}

// Hash computes the state hash: blake3(encodePredicate || data).
func (s *State) Hash() protocol.Hash {
	return protocol.SumConcat(s.Predicate.Encode(), s.Data)
}

// TransferPayload is the public part of a transfer: which state is being
// spent, to whom, and under which salt.
type TransferPayload struct {
	SourceStateHash   protocol.Hash     `json:"sourceStateHash"`             // SourceStateHash names the state being spent
	Recipient         string            `json:"recipient"`                   // Recipient is the destination address text
	Salt              protocol.HexBytes `json:"salt"`                        // Salt randomizes the payload per transfer
	RecipientDataHash *protocol.Hash    `json:"recipientDataHash,omitempty"` // RecipientDataHash commits to data the recipient must present
	Message           protocol.HexBytes `json:"message,omitempty"`           // Message is an optional free-form note
}

// Encode returns the deterministic binary form of the payload.
// All variable-length fields are u32 length-prefixed (LE); the optional
// data hash is a presence byte followed by the hash when present.
func (p *TransferPayload) Encode() []byte {
	var buf bytes.Buffer

	buf.Write(p.SourceStateHash[:])

	writeLenPrefixed(&buf, []byte(p.Recipient))
	writeLenPrefixed(&buf, p.Salt)

	if p.RecipientDataHash != nil {
		buf.WriteByte(1)
		buf.Write(p.RecipientDataHash[:])
	} else {
		buf.WriteByte(0)
	}

	writeLenPrefixed(&buf, p.Message)

	return buf.Bytes()
}

// Hash returns the transaction hash: blake3 of the encoded payload.
// This is the value an inclusion proof's transactionHash must match.
func (p *TransferPayload) Hash() protocol.Hash {
	return protocol.Sum(p.Encode())
}

// writeLenPrefixed writes a u32 length (LE) followed by the bytes.
func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

// SignerAuthorization is the stored signer triple of an unresolved entry.
// It lets a process that does not hold the sender's secret submit the
// transfer later; without it an unresolved entry is unusable.
type SignerAuthorization struct {
	Signature protocol.HexBytes `json:"signature"` // Signature is the sender's signature over the transaction hash
	PublicKey protocol.HexBytes `json:"publicKey"` // PublicKey is the sender's public key
	RequestID protocol.Hash     `json:"requestId"` // RequestID is the aggregator de-duplication key
}

// TransactionEntry is one entry of a token's history. Exactly one of
// Proof (resolved) or SignerAuthorization (unresolved) is set.
type TransactionEntry struct {
	Payload             TransferPayload          `json:"payload"`
	Proof               *protocol.InclusionProof `json:"proof,omitempty"`
	SignerAuthorization *SignerAuthorization     `json:"signerAuthorization,omitempty"`
}

// Resolved reports whether the entry carries an inclusion proof.
func (e *TransactionEntry) Resolved() bool {
	return e.Proof != nil
}

// Token is a single-spend offchain token: a genesis transaction plus an
// append-only list of transfers. CurrentState is the state produced by the
// last proven transaction, or the genesis state when no transfer exists.
type Token struct {
	ID           protocol.Hash      `json:"id"`
	Type         string             `json:"type"`
	Genesis      *TransactionEntry  `json:"genesisTransaction"`
	Transactions []TransactionEntry `json:"transactions"`
	CurrentState State              `json:"currentState"`
}

// GenesisSourceHash is the synthetic source-state hash a token's genesis
// transaction spends: blake3(domain || tokenID).
func GenesisSourceHash(tokenID protocol.Hash) protocol.Hash {
	return protocol.SumConcat(genesisDomain, tokenID[:])
}

// NewSalt returns a fresh random salt.
func NewSalt() (protocol.HexBytes, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt:\n%w", err)
	}

	return salt, nil
}

// NewID derives a token ID from the genesis owner's predicate hash and a
// mint salt.
func NewID(ownerPredicateHash protocol.Hash, salt []byte) protocol.Hash {
	return protocol.SumConcat(ownerPredicateHash[:], salt)
}

// PendingEntry returns the single unresolved tail entry, or nil when the
// latest transaction already has a proof (or no transaction exists).
func (t *Token) PendingEntry() *TransactionEntry {
	if len(t.Transactions) == 0 {
		return nil
	}

	tail := &t.Transactions[len(t.Transactions)-1]
	if tail.Resolved() {
		return nil
	}

	return tail
}

// AppendPending appends an unresolved transaction entry.
// At most one unresolved entry may exist, and it must be the tail.
func (t *Token) AppendPending(entry TransactionEntry) error {
	if entry.Resolved() {
		return fmt.Errorf("entry already carries a proof")
	}

	if t.PendingEntry() != nil {
		return fmt.Errorf("token %s already has a pending transaction", t.ID.Short())
	}

	t.Transactions = append(t.Transactions, entry)

	return nil
}

// Validate checks the token's structural invariants: a proven genesis,
// and at most one unresolved entry, which must be the tail.
func (t *Token) Validate() error {
	if t.Genesis == nil {
		return fmt.Errorf("token %s has no genesis transaction", t.ID.Short())
	}

	if !t.Genesis.Resolved() {
		return fmt.Errorf("token %s genesis transaction has no proof", t.ID.Short())
	}

	for i := range t.Transactions {
		if t.Transactions[i].Resolved() {
			continue
		}

		if i != len(t.Transactions)-1 {
			return fmt.Errorf("token %s has an unresolved transaction at position %d, only the tail may be pending", t.ID.Short(), i)
		}
	}

	return nil
}
