package transfer

import (
	"time"

	"AmberVault/internal/address"
	"AmberVault/internal/logger"
	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
)

// SubmitStatus is the aggregator's answer to a commitment submission.
type SubmitStatus int

const (
	// SubmitAccepted means the request was newly admitted.
	SubmitAccepted SubmitStatus = iota

	// SubmitDuplicate means a request with this ID already exists. An
	// earlier attempt, possibly from another process holding a copy of the
	// same package, already landed. Informational, not fatal.
	SubmitDuplicate
)

// Aggregator is the network surface the engine needs. The HTTP gateway
// client implements it; tests substitute fakes.
type Aggregator interface {
	// SubmitCommitment submits a signed request to the aggregator.
	SubmitCommitment(requestID protocol.Hash, signature, publicKey, payload []byte) (SubmitStatus, error)

	// InclusionProof fetches the current proof for a request ID. A proof
	// with a nil authenticator is a valid exclusion: not yet finalized.
	InclusionProof(requestID protocol.Hash) (*protocol.InclusionProof, error)
}

// Resolution is the terminal state of a resolution attempt.
type Resolution string

const (
	// ResolutionResolved means the pending entry now carries a verified proof.
	ResolutionResolved Resolution = "RESOLVED"

	// ResolutionAlreadyResolved means there was nothing pending: the tail
	// entry already carried a proof. Idempotent no-op.
	ResolutionAlreadyResolved Resolution = "ALREADY_RESOLVED"
)

const (
	// defaultPollInterval is the pause between proof polls.
	defaultPollInterval = time.Second

	// defaultPollTimeout bounds the whole polling loop.
	defaultPollTimeout = 30 * time.Second
)

// Resolver drives an unresolved transfer to a verified proof. Polling is
// an explicit bounded loop; the clock and sleep are injectable so tests
// run without real waiting, and no background task survives a call.
type Resolver struct {
	Agg       Aggregator          // Agg is the aggregator gateway
	TrustBase *protocol.TrustBase // TrustBase anchors certificate verification

	Interval time.Duration         // Interval is the poll spacing
	Timeout  time.Duration         // Timeout bounds the poll loop
	Now      func() time.Time      // Now is the injectable clock
	Sleep    func(d time.Duration) // Sleep is the injectable wait
}

// NewResolver creates a resolver with the default interval, timeout and
// real clock.
func NewResolver(agg Aggregator, tb *protocol.TrustBase) *Resolver {
	return &Resolver{
		Agg:       agg,
		TrustBase: tb,
		Interval:  defaultPollInterval,
		Timeout:   defaultPollTimeout,
		Now:       time.Now,
		Sleep:     time.Sleep,
	}
}

// Resolve drives the token's pending tail entry to a verified proof.
// If the tail already carries a proof, it reports ALREADY_RESOLVED without
// touching the network. On success the entry is mutated in memory only;
// persisting it is the caller's concern, so a failed write after a
// successful resolution can always be retried by re-fetching the proof.
func (r *Resolver) Resolve(t *token.Token) (Resolution, error) {
	entry := t.PendingEntry()
	if entry == nil {
		return ResolutionAlreadyResolved, nil
	}

	if err := r.ResolveEntry(entry); err != nil {
		return "", err
	}

	return ResolutionResolved, nil
}

// ResolveEntry runs the full state machine on one unresolved entry:
// validate the stored authorization, submit it verbatim, poll for the
// proof, verify correspondence and cryptography, then attach the proof.
func (r *Resolver) ResolveEntry(entry *token.TransactionEntry) error {
	start := time.Now()

	auth := entry.SignerAuthorization
	if auth == nil {
		return errKind(ErrLegacyPackage,
			"pending transaction has no stored signer authorization; nobody can submit it")
	}

	// The stored triple is submitted exactly as persisted. Deriving a fresh
	// signature here, even with a secret at hand, would produce a different
	// requestId/signature pair than the one bound to the source state, and
	// the aggregator would reject it.
	txHash := entry.Payload.Hash()

	if err := verifyAuthorization(auth, entry.Payload.SourceStateHash, txHash); err != nil {
		return err
	}

	status, err := r.Agg.SubmitCommitment(auth.RequestID, auth.Signature, auth.PublicKey, entry.Payload.Encode())
	if err != nil {
		return errKind(ErrNetwork, "submit commitment %s: %v", auth.RequestID.Short(), err)
	}

	if status == SubmitDuplicate {
		logger.Info("request already submitted, proceeding to poll",
			"requestId", auth.RequestID.Short())
	}

	proof, err := r.pollProof(auth.RequestID)
	if err != nil {
		return err
	}

	if err := VerifyCorrespondence(proof, entry.Payload.SourceStateHash, txHash); err != nil {
		return err
	}

	if err := protocol.VerifyProof(proof, auth.RequestID, r.TrustBase); err != nil {
		return errKind(ErrCrypto, "verify inclusion proof: %v", err)
	}

	// Only a fully verified proof is ever attached. The entry flips from
	// unresolved to resolved; the authorization has served its purpose.
	entry.Proof = proof
	entry.SignerAuthorization = nil

	logger.Info("inclusion proof verified",
		"requestId", auth.RequestID.Short(),
		logger.Timed(start),
	)

	return nil
}

// pollProof polls the aggregator at a fixed interval until a non-exclusion
// proof appears or the timeout elapses. Exclusion answers and transient
// network errors both mean "not yet": keep polling until the deadline.
func (r *Resolver) pollProof(requestID protocol.Hash) (*protocol.InclusionProof, error) {
	log := logger.With("requestId", requestID.Short())
	deadline := r.Now().Add(r.Timeout)

	for attempt := 0; ; attempt++ {
		proof, err := r.Agg.InclusionProof(requestID)

		switch {
		case err != nil:
			log.Debug("proof poll failed", "attempt", attempt, "error", err)
		case proof.Authenticator != nil:
			return proof, nil
		default:
			// Exclusion: the request is not in the tree yet.
			log.Debug("request not yet finalized", "attempt", attempt)
		}

		if !r.Now().Add(r.Interval).Before(deadline) {
			return nil, errKind(ErrTimeout,
				"no inclusion proof for request %s after %s; retry later, nothing was persisted",
				requestID.Short(), r.Timeout)
		}

		r.Sleep(r.Interval)
	}
}

// Finalize advances a token to the recipient's new state after its tail
// transfer resolved. The recipient presents the predicate (and optional
// data) their address committed to; both commitments are checked before
// the current state moves.
func Finalize(t *token.Token, newState token.State) error {
	if len(t.Transactions) == 0 {
		return errKind(ErrStructural, "token has no transfer to finalize")
	}

	tail := &t.Transactions[len(t.Transactions)-1]
	if !tail.Resolved() {
		return errKind(ErrStructural, "tail transaction is not resolved yet")
	}

	addr, err := address.Parse(tail.Payload.Recipient)
	if err != nil {
		return errKind(ErrStructural, "invalid recipient address in payload: %v", err)
	}

	if got := newState.Predicate.Hash(); got != addr.PredicateHash {
		return errKind(ErrOwnership,
			"presented predicate hashes to %s, transfer was addressed to %s",
			got, addr.PredicateHash)
	}

	if tail.Payload.RecipientDataHash != nil {
		if got := protocol.Sum(newState.Data); got != *tail.Payload.RecipientDataHash {
			return errKind(ErrCrypto,
				"state data hashes to %s, payload committed to %s",
				got, *tail.Payload.RecipientDataHash)
		}
	}

	t.CurrentState = newState

	return nil
}

// CheckStale asks the aggregator whether the token's current state has
// already been spent elsewhere: an inclusion answer for the current
// owner's request ID means this local copy is stale. The check is
// advisory; callers must treat errors as "unknown", never as fatal.
func CheckStale(agg Aggregator, t *token.Token) (bool, error) {
	requestID := protocol.RequestID(t.CurrentState.Predicate.PublicKey, t.CurrentState.Hash())

	proof, err := agg.InclusionProof(requestID)
	if err != nil {
		return false, errKind(ErrNetwork, "staleness check for %s: %v", requestID.Short(), err)
	}

	return proof.Authenticator != nil, nil
}
