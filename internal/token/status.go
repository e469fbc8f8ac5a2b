package token

// Status is the human-facing classification of a token's local history.
type Status string

const (
	// StatusMinted means only the genesis transaction exists.
	StatusMinted Status = "MINTED"

	// StatusPending means the tail transaction has no proof yet.
	StatusPending Status = "PENDING"

	// StatusConfirmed means the tail transaction has a proof and the local
	// state has advanced past the spent one.
	StatusConfirmed Status = "CONFIRMED"

	// StatusTransferredAway means the tail transaction has a proof but the
	// local copy still points at the spent state: this copy was kept by the
	// sender after a transfer and is no longer authoritative.
	StatusTransferredAway Status = "TRANSFERRED_AWAY"
)

// Classify derives the status purely from the token's transaction list
// and current state. It never touches the network; staleness cross-checks
// are a separate, advisory concern.
func Classify(t *Token) Status {
	if len(t.Transactions) == 0 {
		return StatusMinted
	}

	tail := &t.Transactions[len(t.Transactions)-1]
	if !tail.Resolved() {
		return StatusPending
	}

	// The tail is proven. If the current state is still the one the tail
	// spent, this copy never advanced: it belongs to whoever received it.
	if t.CurrentState.Hash() == tail.Payload.SourceStateHash {
		return StatusTransferredAway
	}

	return StatusConfirmed
}
