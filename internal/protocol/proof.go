package protocol

import (
	"fmt"
)

// Authenticator names the source state a proof attests was spent,
// along with the spender's public key and signature.
type Authenticator struct {
	StateHash Hash     `json:"stateHash"` // StateHash is the spent source state
	PublicKey HexBytes `json:"publicKey"` // PublicKey is the spender's public key
	Signature HexBytes `json:"signature"` // Signature is the spender's signature over the transaction hash
}

// InclusionProof is the aggregator's answer for a request ID.
// A nil Authenticator is a valid exclusion proof: the request is not
// (yet) in the tree. That is not an error.
type InclusionProof struct {
	MerklePath      []PathStep     `json:"merklePath"`              // MerklePath leads from the request leaf to the root
	TransactionHash Hash           `json:"transactionHash"`         // TransactionHash is the accepted transaction for the source state
	Authenticator   *Authenticator `json:"authenticator,omitempty"` // Authenticator is nil for exclusion proofs
	Certificate     Certificate    `json:"certificate"`             // Certificate is the consensus certificate over the tree root
}

// RequestID computes the aggregator's de-duplication key for a submission:
// blake3(signer public key || source state hash). Only the holder of the
// matching secret can produce a valid signature for this ID.
func RequestID(publicKey []byte, sourceStateHash Hash) Hash {
	return SumConcat(publicKey, sourceStateHash[:])
}

// Leaf computes the tree leaf for this proof under a request ID.
// leaf = blake3(requestID || transactionHash || authenticator fields).
func (p *InclusionProof) Leaf(requestID Hash) Hash {
	return SumConcat(
		requestID[:],
		p.TransactionHash[:],
		p.Authenticator.StateHash[:],
		p.Authenticator.PublicKey,
		p.Authenticator.Signature,
	)
}

// VerifyProof cryptographically verifies an inclusion proof against the
// trust base: the authenticator signature, the merkle path from the request
// leaf to the certified root, and the consensus certificate itself.
//
// Correspondence with the caller's own commitment (which state, which
// transaction) is a separate concern checked by the transfer package.
func VerifyProof(p *InclusionProof, requestID Hash, tb *TrustBase) error {
	if p.Authenticator == nil {
		return fmt.Errorf("exclusion proof carries nothing to verify for request %s", requestID.Short())
	}

	if !VerifyDigestSignature(p.Authenticator.PublicKey, p.TransactionHash, p.Authenticator.Signature) {
		return fmt.Errorf("authenticator signature does not verify over transaction hash %s", p.TransactionHash.Short())
	}

	root := FoldPath(p.Leaf(requestID), p.MerklePath)
	if root != p.Certificate.RootHash {
		return fmt.Errorf("merkle path folds to root %s, certificate names %s", root, p.Certificate.RootHash)
	}

	if err := tb.VerifyCertificate(&p.Certificate); err != nil {
		return fmt.Errorf("verify certificate:\n%w", err)
	}

	return nil
}
