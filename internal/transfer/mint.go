package transfer

import (
	"AmberVault/internal/address"
	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
)

// MintParams describes the token to create.
type MintParams struct {
	// Type is the application-level token type string.
	Type string

	// Data is the optional genesis state data.
	Data []byte

	// PredicateType selects the owner predicate; empty means unmasked.
	PredicateType token.PredicateType
}

// Mint creates a token: it builds the genesis commitment spending the
// token's synthetic genesis source state into the owner's address, drives
// it through the resolver, and returns the token with a proven genesis.
func Mint(r *Resolver, signer *protocol.Signer, params MintParams) (*token.Token, error) {
	predType := params.PredicateType
	if predType == "" {
		predType = token.PredicateUnmasked
	}

	predicate := token.Predicate{
		Type:      predType,
		PublicKey: signer.PublicKey(),
	}

	if err := predicate.Validate(); err != nil {
		return nil, errKind(ErrStructural, "owner predicate: %v", err)
	}

	salt, err := token.NewSalt()
	if err != nil {
		return nil, errKind(ErrCrypto, "mint salt: %v", err)
	}

	id := token.NewID(predicate.Hash(), salt)

	ownerAddr, err := address.Encode(predicate.Hash())
	if err != nil {
		return nil, errKind(ErrStructural, "encode owner address: %v", err)
	}

	opts := Options{}
	if len(params.Data) > 0 {
		dataHash := protocol.Sum(params.Data)
		opts.RecipientDataHash = &dataHash
	}

	commitment, err := BuildGenesisCommitment(id, ownerAddr, signer, opts)
	if err != nil {
		return nil, err
	}

	entry := commitment.Entry()
	if err := r.ResolveEntry(&entry); err != nil {
		return nil, err
	}

	return &token.Token{
		ID:      id,
		Type:    params.Type,
		Genesis: &entry,
		CurrentState: token.State{
			Predicate: predicate,
			Data:      params.Data,
		},
	}, nil
}
