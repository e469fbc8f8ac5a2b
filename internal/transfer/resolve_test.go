package transfer

import (
	"errors"
	"fmt"
	"testing"

	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
)

// =============================================================================
// Submission & Resolution Engine
// =============================================================================

// TestResolve_AlreadyResolved verifies a token whose tail carries a proof
// is reported resolved without any network call.
func TestResolve_AlreadyResolved(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)

	fake := &fakeAggregator{}
	r := testResolver(fake, nil)

	res, err := r.Resolve(tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if res != ResolutionAlreadyResolved {
		t.Errorf("expected %s, got %s", ResolutionAlreadyResolved, res)
	}

	if len(fake.submissions) != 0 || fake.polls != 0 {
		t.Error("already-resolved token must not touch the network")
	}
}

// TestResolve_HappyPath verifies the full pipeline: submit the stored
// triple, poll through an exclusion answer, verify and attach the proof.
func TestResolve_HappyPath(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 4)

	c, err := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	if err != nil {
		t.Fatalf("build commitment: %v", err)
	}
	if err := tok.AppendPending(c.Entry()); err != nil {
		t.Fatalf("append pending: %v", err)
	}

	fake := &fakeAggregator{
		submitStatus: SubmitAccepted,
		proofs: []*protocol.InclusionProof{
			{}, // exclusion on the first poll: not yet finalized
			provenProof(t, c, keys),
		},
	}

	r := testResolver(fake, tb)

	res, err := r.Resolve(tok)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if res != ResolutionResolved {
		t.Errorf("expected %s, got %s", ResolutionResolved, res)
	}

	if fake.polls < 2 {
		t.Errorf("expected polling past the exclusion answer, got %d polls", fake.polls)
	}

	tail := &tok.Transactions[len(tok.Transactions)-1]
	if tail.Proof == nil {
		t.Fatal("proof not attached")
	}
	if tail.SignerAuthorization != nil {
		t.Error("resolved entry should drop its signer authorization")
	}
	if tok.PendingEntry() != nil {
		t.Error("no entry should remain pending after resolution")
	}
}

// TestResolve_SubmitsStoredTriple verifies the engine submits exactly the
// persisted signature/key/requestId, never rederived values.
func TestResolve_SubmitsStoredTriple(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 1)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	tok.AppendPending(c.Entry())

	fake := &fakeAggregator{
		submitStatus: SubmitAccepted,
		proofs:       []*protocol.InclusionProof{provenProof(t, c, keys)},
	}

	if _, err := testResolver(fake, tb).Resolve(tok); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(fake.submissions) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(fake.submissions))
	}

	sub := fake.submissions[0]
	if sub.requestID != c.RequestID {
		t.Error("submitted request ID differs from the stored one")
	}
	if string(sub.signature) != string(c.Signature) {
		t.Error("submitted signature differs from the stored one")
	}
	if string(sub.publicKey) != string(c.SignerPublicKey) {
		t.Error("submitted public key differs from the stored one")
	}
}

// TestResolve_DuplicateSubmission verifies the duplicate acknowledgment is
// benign: a second resolution attempt of the same package still reaches a
// verified proof via polling.
func TestResolve_DuplicateSubmission(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 4)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	tok.AppendPending(c.Entry())

	fake := &fakeAggregator{
		submitStatus: SubmitDuplicate, // an earlier attempt already landed
		proofs:       []*protocol.InclusionProof{provenProof(t, c, keys)},
	}

	res, err := testResolver(fake, tb).Resolve(tok)
	if err != nil {
		t.Fatalf("duplicate submission must not fail resolution: %v", err)
	}

	if res != ResolutionResolved {
		t.Errorf("expected %s, got %s", ResolutionResolved, res)
	}
}

// TestResolve_Timeout verifies a never-finalizing request fails with the
// timeout kind and leaves the entry pending, so retrying stays safe.
func TestResolve_Timeout(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, _ := testTrustBase(t, 1)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	tok.AppendPending(c.Entry())

	fake := &fakeAggregator{submitStatus: SubmitAccepted} // only exclusions

	_, err := testResolver(fake, tb).Resolve(tok)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}

	entry := tok.PendingEntry()
	if entry == nil || entry.SignerAuthorization == nil {
		t.Error("timeout must leave the pending entry and its authorization untouched")
	}
}

// TestResolve_RetryAfterTimeout verifies a send that timed out can be
// retried with the preserved entry: the retry resubmits the identical
// stored triple, is acknowledged as a duplicate and resolves against the
// proof of its own earlier submission instead of colliding with it.
func TestResolve_RetryAfterTimeout(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 2)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	tok.AppendPending(c.Entry())

	stuck := &fakeAggregator{submitStatus: SubmitAccepted} // only exclusions

	_, err := testResolver(stuck, tb).Resolve(tok)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout on the first attempt, got %v", err)
	}

	// The first submission landed at the aggregator. The retry is answered
	// with a duplicate ack and, eventually, the proof of that submission.
	retry := &fakeAggregator{
		submitStatus: SubmitDuplicate,
		proofs:       []*protocol.InclusionProof{provenProof(t, c, keys)},
	}

	res, err := testResolver(retry, tb).Resolve(tok)
	if err != nil {
		t.Fatalf("retry with the preserved entry must succeed: %v", err)
	}
	if res != ResolutionResolved {
		t.Errorf("expected %s, got %s", ResolutionResolved, res)
	}

	if len(stuck.submissions) != 1 || len(retry.submissions) != 1 {
		t.Fatal("each attempt should submit exactly once")
	}
	if string(retry.submissions[0].signature) != string(stuck.submissions[0].signature) {
		t.Error("retry must resubmit the stored signature, not a rederived one")
	}
}

// TestResolve_TransientPollErrors verifies network hiccups during polling
// are retried within the deadline rather than surfaced.
func TestResolve_TransientPollErrors(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 2)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	tok.AppendPending(c.Entry())

	fake := &fakeAggregator{
		submitStatus: SubmitAccepted,
		proofErrs:    []error{fmt.Errorf("connection refused"), fmt.Errorf("connection refused")},
		proofs:       []*protocol.InclusionProof{nil, nil, provenProof(t, c, keys)},
	}

	if _, err := testResolver(fake, tb).Resolve(tok); err != nil {
		t.Fatalf("transient poll errors should be retried: %v", err)
	}
}

// TestResolve_DoubleSpendOutcome verifies the engine classifies a
// competing accepted transaction as double-spend: commitment B polls and
// receives A's proof for the shared request ID.
func TestResolve_DoubleSpendOutcome(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 4)

	toA, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})

	tokB := testToken(t, owner)
	tokB.ID = tok.ID
	tokB.CurrentState = tok.CurrentState

	toB, _ := BuildCommitment(tokB, testAddress(t, testSigner(t)), owner, Options{})
	tokB.AppendPending(toB.Entry())

	fake := &fakeAggregator{
		submitStatus: SubmitDuplicate,
		proofs:       []*protocol.InclusionProof{provenProof(t, toA, keys)},
	}

	_, err := testResolver(fake, tb).Resolve(tokB)
	if !errors.Is(err, ErrDoubleSpent) {
		t.Errorf("expected ErrDoubleSpent, got %v", err)
	}

	if tokB.PendingEntry() == nil {
		t.Error("losing entry must stay pending; no proof may be persisted")
	}
}

// TestResolve_WrongProofOutcome verifies a proof for an unrelated source
// state is rejected with the wrong-proof kind before certificate checks.
func TestResolve_WrongProofOutcome(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 2)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	tok.AppendPending(c.Entry())

	// Build a proof for a completely different commitment and serve it
	// under our request ID.
	otherOwner := testSigner(t)
	otherTok := testToken(t, otherOwner)
	otherC, _ := BuildCommitment(otherTok, testAddress(t, testSigner(t)), otherOwner, Options{})

	fake := &fakeAggregator{
		submitStatus: SubmitAccepted,
		proofs:       []*protocol.InclusionProof{provenProof(t, otherC, keys)},
	}

	_, err := testResolver(fake, tb).Resolve(tok)
	if !errors.Is(err, ErrWrongProof) {
		t.Errorf("expected ErrWrongProof, got %v", err)
	}
}

// TestResolve_NoAuthorization verifies a pending entry without the stored
// triple fails with the legacy kind before any network call.
func TestResolve_NoAuthorization(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	entry := c.Entry()
	entry.SignerAuthorization = nil
	tok.Transactions = append(tok.Transactions, entry)

	fake := &fakeAggregator{}

	_, err := testResolver(fake, nil).Resolve(tok)
	if !errors.Is(err, ErrLegacyPackage) {
		t.Errorf("expected ErrLegacyPackage, got %v", err)
	}

	if len(fake.submissions) != 0 {
		t.Error("unsubmittable entry must not be submitted")
	}
}

// TestResolve_SubstitutedAuthorization verifies resolution with a foreign
// key in the stored triple fails before submission, not after.
func TestResolve_SubstitutedAuthorization(t *testing.T) {
	owner := testSigner(t)
	impostor := testSigner(t)
	tok := testToken(t, owner)

	c, _ := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	entry := c.Entry()
	entry.SignerAuthorization.PublicKey = impostor.PublicKey()
	entry.SignerAuthorization.Signature = impostor.SignDigest(c.TransactionHash)
	tok.Transactions = append(tok.Transactions, entry)

	fake := &fakeAggregator{}

	_, err := testResolver(fake, nil).Resolve(tok)
	if !errors.Is(err, ErrCrypto) {
		t.Errorf("expected ErrCrypto, got %v", err)
	}

	if len(fake.submissions) != 0 || fake.polls != 0 {
		t.Error("substituted authorization must be rejected before any network call")
	}
}

// =============================================================================
// Finalize
// =============================================================================

// TestFinalize_AdvancesState verifies the recipient's matching predicate
// moves the current state forward.
func TestFinalize_AdvancesState(t *testing.T) {
	owner := testSigner(t)
	recipient := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 2)

	c, _ := BuildCommitment(tok, testAddress(t, recipient), owner, Options{})
	tok.AppendPending(c.Entry())

	fake := &fakeAggregator{
		submitStatus: SubmitAccepted,
		proofs:       []*protocol.InclusionProof{provenProof(t, c, keys)},
	}

	if _, err := testResolver(fake, tb).Resolve(tok); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	newState := token.State{
		Predicate: token.Predicate{Type: token.PredicateUnmasked, PublicKey: recipient.PublicKey()},
	}

	if err := Finalize(tok, newState); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if tok.CurrentState.Hash() != newState.Hash() {
		t.Error("current state did not advance to the recipient's state")
	}

	if got := token.Classify(tok); got != token.StatusConfirmed {
		t.Errorf("expected %s after finalize, got %s", token.StatusConfirmed, got)
	}
}

// TestFinalize_WrongPredicate verifies a predicate that does not hash to
// the addressed commitment is rejected.
func TestFinalize_WrongPredicate(t *testing.T) {
	owner := testSigner(t)
	recipient := testSigner(t)
	stranger := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 2)

	c, _ := BuildCommitment(tok, testAddress(t, recipient), owner, Options{})
	tok.AppendPending(c.Entry())

	fake := &fakeAggregator{
		submitStatus: SubmitAccepted,
		proofs:       []*protocol.InclusionProof{provenProof(t, c, keys)},
	}

	if _, err := testResolver(fake, tb).Resolve(tok); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	wrong := token.State{
		Predicate: token.Predicate{Type: token.PredicateUnmasked, PublicKey: stranger.PublicKey()},
	}

	if err := Finalize(tok, wrong); !errors.Is(err, ErrOwnership) {
		t.Errorf("expected ErrOwnership, got %v", err)
	}
}

// TestFinalize_DataCommitment verifies the recipient must present the
// exact data the payload committed to.
func TestFinalize_DataCommitment(t *testing.T) {
	owner := testSigner(t)
	recipient := testSigner(t)
	tok := testToken(t, owner)
	tb, keys := testTrustBase(t, 2)

	committed := []byte("the committed data")
	dataHash := protocol.Sum(committed)

	c, _ := BuildCommitment(tok, testAddress(t, recipient), owner, Options{RecipientDataHash: &dataHash})
	tok.AppendPending(c.Entry())

	fake := &fakeAggregator{
		submitStatus: SubmitAccepted,
		proofs:       []*protocol.InclusionProof{provenProof(t, c, keys)},
	}

	if _, err := testResolver(fake, tb).Resolve(tok); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	pred := token.Predicate{Type: token.PredicateUnmasked, PublicKey: recipient.PublicKey()}

	if err := Finalize(tok, token.State{Predicate: pred, Data: []byte("other data")}); !errors.Is(err, ErrCrypto) {
		t.Errorf("expected ErrCrypto for mismatched data, got %v", err)
	}

	if err := Finalize(tok, token.State{Predicate: pred, Data: committed}); err != nil {
		t.Errorf("matching data rejected: %v", err)
	}
}

// =============================================================================
// Staleness cross-check
// =============================================================================

// TestCheckStale verifies inclusion for the current owner's request ID
// flags the local copy as stale, and exclusion confirms it current.
func TestCheckStale(t *testing.T) {
	owner := testSigner(t)
	tok := testToken(t, owner)

	current := &fakeAggregator{} // exclusion answers only
	stale, err := CheckStale(current, tok)
	if err != nil {
		t.Fatalf("check stale: %v", err)
	}
	if stale {
		t.Error("exclusion answer should confirm the copy is current")
	}

	spent := &fakeAggregator{
		proofs: []*protocol.InclusionProof{{
			Authenticator: &protocol.Authenticator{StateHash: tok.CurrentState.Hash()},
		}},
	}

	stale, err = CheckStale(spent, tok)
	if err != nil {
		t.Fatalf("check stale: %v", err)
	}
	if !stale {
		t.Error("inclusion answer should flag the copy as stale")
	}
}
