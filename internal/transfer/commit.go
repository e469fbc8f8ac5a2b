package transfer

import (
	"AmberVault/internal/address"
	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
)

// Commitment is a signed intent to transition a token from its current
// state to a named recipient. Building one is pure local computation: no
// network access, which is what makes offline transfers possible.
type Commitment struct {
	Payload         token.TransferPayload // Payload is the public transfer content
	TransactionHash protocol.Hash         // TransactionHash is blake3 of the encoded payload
	Signature       protocol.HexBytes     // Signature is the sender's signature over the transaction hash
	SignerPublicKey protocol.HexBytes     // SignerPublicKey is the sender's public key
	RequestID       protocol.Hash         // RequestID is blake3(signer public key || source state hash)
}

// Options carries the optional inputs of a commitment.
type Options struct {
	// RecipientDataHash commits the recipient to presenting matching state
	// data when finalizing. Nil means no data commitment.
	RecipientDataHash *protocol.Hash

	// Message is an optional free-form note carried in the payload.
	Message []byte

	// SkipOwnershipCheck disables the local owner-key precondition. The
	// aggregator's signature check remains the real boundary; this exists
	// for delegation and testing flows.
	SkipOwnershipCheck bool
}

// VerifyOwnership checks that the signer's public key equals the key
// embedded in the token's current predicate, byte for byte. It exists to
// give a fast local error instead of an opaque rejection after three
// network round-trips.
func VerifyOwnership(t *token.Token, signer *protocol.Signer) error {
	if !signer.MatchesPublicKey(t.CurrentState.Predicate.PublicKey) {
		return errKind(ErrOwnership,
			"signing key %x does not match token owner key %x",
			signer.PublicKey()[:4], []byte(t.CurrentState.Predicate.PublicKey[:4]))
	}

	return nil
}

// BuildCommitment builds a signed transfer commitment for the token's
// current state. The salt is freshly randomized on every call so a
// recipient can never recompute a prior request ID for a different
// transfer of the same state.
func BuildCommitment(t *token.Token, destination string, signer *protocol.Signer, opts Options) (*Commitment, error) {
	if !opts.SkipOwnershipCheck {
		if err := VerifyOwnership(t, signer); err != nil {
			return nil, err
		}
	}

	return buildForState(t.CurrentState.Hash(), destination, signer, opts)
}

// BuildGenesisCommitment builds the commitment that mints a token: it
// spends the token's synthetic genesis source state into the owner's
// address. The ownership precondition does not apply, there is no prior
// owner.
func BuildGenesisCommitment(tokenID protocol.Hash, ownerAddress string, signer *protocol.Signer, opts Options) (*Commitment, error) {
	return buildForState(token.GenesisSourceHash(tokenID), ownerAddress, signer, opts)
}

// buildForState is the common construction path.
func buildForState(sourceStateHash protocol.Hash, destination string, signer *protocol.Signer, opts Options) (*Commitment, error) {
	if _, err := address.Parse(destination); err != nil {
		return nil, errKind(ErrStructural, "invalid destination address %q: %v", destination, err)
	}

	salt, err := token.NewSalt()
	if err != nil {
		return nil, errKind(ErrCrypto, "randomize salt: %v", err)
	}

	payload := token.TransferPayload{
		SourceStateHash:   sourceStateHash,
		Recipient:         destination,
		Salt:              salt,
		RecipientDataHash: opts.RecipientDataHash,
		Message:           opts.Message,
	}

	txHash := payload.Hash()

	return &Commitment{
		Payload:         payload,
		TransactionHash: txHash,
		Signature:       signer.SignDigest(txHash),
		SignerPublicKey: signer.PublicKey(),
		RequestID:       protocol.RequestID(signer.PublicKey(), sourceStateHash),
	}, nil
}

// Authorization returns the signer triple stored in the pending entry so
// a third party can submit the transfer without the sender's secret.
func (c *Commitment) Authorization() *token.SignerAuthorization {
	return &token.SignerAuthorization{
		Signature: c.Signature,
		PublicKey: c.SignerPublicKey,
		RequestID: c.RequestID,
	}
}

// Entry returns the unresolved transaction entry embedding the
// commitment's public fields and the stored signer triple.
func (c *Commitment) Entry() token.TransactionEntry {
	return token.TransactionEntry{
		Payload:             c.Payload,
		SignerAuthorization: c.Authorization(),
	}
}
