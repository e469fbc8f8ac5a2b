package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
)

const (
	// quorumThreshold is the minimum percentage of validators required (67%).
	quorumThreshold = 67
)

// TrustBase holds the validator set a client trusts to certify tree roots.
// It is loaded once and passed explicitly; there is no process-wide cache,
// so tests can inject a fresh instance.
type TrustBase struct {
	// Validators are the compressed BLS public keys of the validator set,
	// in canonical order. Signer bitmaps index into this list.
	Validators []HexBytes `json:"validators"`

	// Quorum is the minimum number of signers for a valid certificate.
	// Zero means "derive from the validator count" (67%, rounded up).
	Quorum int `json:"quorum,omitempty"`
}

// LoadTrustBase reads and validates a trust base JSON file.
func LoadTrustBase(path string) (*TrustBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trust base:\n%w", err)
	}

	var tb TrustBase
	if err := json.Unmarshal(data, &tb); err != nil {
		return nil, fmt.Errorf("parse trust base:\n%w", err)
	}

	if err := tb.Validate(); err != nil {
		return nil, fmt.Errorf("validate trust base:\n%w", err)
	}

	return &tb, nil
}

// Validate checks the trust base for structural problems.
func (tb *TrustBase) Validate() error {
	if len(tb.Validators) == 0 {
		return fmt.Errorf("trust base has no validators")
	}

	for i, pk := range tb.Validators {
		if len(pk) != BLSPublicKeySize {
			return fmt.Errorf("validator %d: invalid BLS public key size %d", i, len(pk))
		}
	}

	if tb.Quorum < 0 || tb.Quorum > len(tb.Validators) {
		return fmt.Errorf("quorum %d out of range for %d validators", tb.Quorum, len(tb.Validators))
	}

	return nil
}

// QuorumSize returns the effective quorum: the configured value,
// or 67% of the validator count rounded up when unset.
func (tb *TrustBase) QuorumSize() int {
	if tb.Quorum > 0 {
		return tb.Quorum
	}

	return (len(tb.Validators)*quorumThreshold + 99) / 100
}

// Certificate is a consensus certificate over an aggregator tree root.
// A validator quorum BLS-signs rootHash || round.
type Certificate struct {
	RootHash           Hash     `json:"rootHash"`           // RootHash is the certified tree root
	Round              uint64   `json:"round"`              // Round is the consensus round number
	AggregateSignature HexBytes `json:"aggregateSignature"` // AggregateSignature is the BLS aggregate
	SignerBitmap       HexBytes `json:"signerBitmap"`       // SignerBitmap marks which validators signed
}

// SigningMessage returns the byte string the validators sign.
func (c *Certificate) SigningMessage() []byte {
	msg := make([]byte, HashSize+8)
	copy(msg[:HashSize], c.RootHash[:])
	binary.LittleEndian.PutUint64(msg[HashSize:], c.Round)

	return msg
}

// VerifyCertificate checks that the certificate carries a quorum of valid
// validator signatures over its root hash and round.
func (tb *TrustBase) VerifyCertificate(cert *Certificate) error {
	indices := ParseSignerBitmap(cert.SignerBitmap)

	signers := make([][]byte, 0, len(indices))
	for _, idx := range indices {
		if idx >= len(tb.Validators) {
			return fmt.Errorf("signer bitmap references validator %d, set has %d", idx, len(tb.Validators))
		}
		signers = append(signers, tb.Validators[idx])
	}

	if len(signers) < tb.QuorumSize() {
		return fmt.Errorf("certificate signed by %d validators, quorum is %d", len(signers), tb.QuorumSize())
	}

	if !VerifyAggregatedBLS(cert.AggregateSignature, cert.SigningMessage(), signers) {
		return fmt.Errorf("invalid aggregate signature on certificate for root %s", cert.RootHash.Short())
	}

	return nil
}
