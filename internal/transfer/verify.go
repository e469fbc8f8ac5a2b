package transfer

import (
	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
)

// VerifyCorrespondence checks, independently of the aggregator's honesty,
// that a returned proof is for the caller's exact request. Two comparisons
// run in order:
//
//  1. Source-state correspondence: the proof's authenticator must name our
//     source state. A mismatch means the proof is not even for the right
//     predecessor state (mislabeled proof, corruption, or a misbehaving
//     server) and the second check is skipped.
//  2. Transaction correspondence: the proof's transaction hash must equal
//     ours. A mismatch with the source state already matching is the
//     double-spend signature: a competing transfer of the same state won.
//
// The aggregator's HTTP-level duplicate response says nothing about which
// competing transaction won; only this comparison does.
func VerifyCorrespondence(proof *protocol.InclusionProof, sourceStateHash, transactionHash protocol.Hash) error {
	if proof.Authenticator == nil {
		return errKind(ErrWrongProof, "proof has no authenticator to compare against")
	}

	if proof.Authenticator.StateHash != sourceStateHash {
		return errKind(ErrWrongProof,
			"proof names source state %s, ours is %s",
			proof.Authenticator.StateHash, sourceStateHash)
	}

	if proof.TransactionHash != transactionHash {
		return errKind(ErrDoubleSpent,
			"source state %s already spent: accepted transaction is %s, ours is %s",
			sourceStateHash.Short(), proof.TransactionHash, transactionHash)
	}

	return nil
}

// verifyAuthorization cross-checks a stored signer triple against its
// payload before anything touches the network: the request ID must derive
// from the stored key and source state, and the stored signature must
// verify over the transaction hash under the stored key. A triple signed
// by any other key fails here.
func verifyAuthorization(auth *token.SignerAuthorization, sourceStateHash, transactionHash protocol.Hash) error {
	want := protocol.RequestID(auth.PublicKey, sourceStateHash)
	if auth.RequestID != want {
		return errKind(ErrCrypto,
			"stored request ID %s does not derive from the stored key and source state (expected %s)",
			auth.RequestID, want)
	}

	if !protocol.VerifyDigestSignature(auth.PublicKey, transactionHash, auth.Signature) {
		return errKind(ErrCrypto,
			"stored signature does not verify over transaction hash %s under the stored key",
			transactionHash)
	}

	return nil
}
