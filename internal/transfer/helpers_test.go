package transfer

import (
	"testing"
	"time"

	"AmberVault/internal/address"
	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
)

// =============================================================================
// Shared fixtures
// =============================================================================

// testSigner creates a fresh random signer or fails the test.
func testSigner(t *testing.T) *protocol.Signer {
	t.Helper()

	s, err := protocol.GenerateSigner()
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}

	return s
}

// testAddress returns the address of a signer's unmasked predicate.
func testAddress(t *testing.T, s *protocol.Signer) string {
	t.Helper()

	p := token.Predicate{Type: token.PredicateUnmasked, PublicKey: s.PublicKey()}

	addr, err := address.Encode(p.Hash())
	if err != nil {
		t.Fatalf("encode address: %v", err)
	}

	return addr
}

// testToken builds a minted token owned by the signer, with a synthetic
// but structurally valid genesis proof.
func testToken(t *testing.T, owner *protocol.Signer) *token.Token {
	t.Helper()

	predicate := token.Predicate{Type: token.PredicateUnmasked, PublicKey: owner.PublicKey()}

	salt, err := token.NewSalt()
	if err != nil {
		t.Fatalf("salt: %v", err)
	}

	id := token.NewID(predicate.Hash(), salt)

	commitment, err := BuildGenesisCommitment(id, testAddress(t, owner), owner, Options{})
	if err != nil {
		t.Fatalf("genesis commitment: %v", err)
	}

	entry := commitment.Entry()
	entry.Proof = &protocol.InclusionProof{
		TransactionHash: commitment.TransactionHash,
		Authenticator: &protocol.Authenticator{
			StateHash: commitment.Payload.SourceStateHash,
			PublicKey: commitment.SignerPublicKey,
			Signature: commitment.Signature,
		},
	}
	entry.SignerAuthorization = nil

	return &token.Token{
		ID:           id,
		Type:         "test",
		Genesis:      &entry,
		CurrentState: token.State{Predicate: predicate},
	}
}

// testTrustBase builds a trust base with n validators and returns the
// keypairs so tests can certify roots.
func testTrustBase(t *testing.T, n int) (*protocol.TrustBase, []*protocol.BLSKeyPair) {
	t.Helper()

	keys := make([]*protocol.BLSKeyPair, n)
	validators := make([]protocol.HexBytes, n)

	for i := range keys {
		k, err := protocol.GenerateBLSKey()
		if err != nil {
			t.Fatalf("generate BLS key: %v", err)
		}

		keys[i] = k
		validators[i] = k.PublicKeyBytes()
	}

	return &protocol.TrustBase{Validators: validators}, keys
}

// certify BLS-signs a root with every validator and assembles the
// aggregate certificate.
func certify(t *testing.T, keys []*protocol.BLSKeyPair, root protocol.Hash, round uint64) protocol.Certificate {
	t.Helper()

	cert := protocol.Certificate{RootHash: root, Round: round}
	msg := cert.SigningMessage()

	sigs := make([][]byte, len(keys))
	indices := make([]int, len(keys))

	for i, k := range keys {
		sigs[i] = k.Sign(msg)
		indices[i] = i
	}

	agg, err := protocol.AggregateBLSSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate signatures: %v", err)
	}

	cert.AggregateSignature = agg
	cert.SignerBitmap = protocol.BuildSignerBitmap(indices, len(keys))

	return cert
}

// provenProof builds a fully verifiable inclusion proof for a commitment:
// empty merkle path (root == leaf) certified by the whole validator set.
func provenProof(t *testing.T, c *Commitment, keys []*protocol.BLSKeyPair) *protocol.InclusionProof {
	t.Helper()

	proof := &protocol.InclusionProof{
		TransactionHash: c.TransactionHash,
		Authenticator: &protocol.Authenticator{
			StateHash: c.Payload.SourceStateHash,
			PublicKey: c.SignerPublicKey,
			Signature: c.Signature,
		},
	}

	proof.Certificate = certify(t, keys, proof.Leaf(c.RequestID), 7)

	return proof
}

// =============================================================================
// Fake aggregator
// =============================================================================

// submission records one SubmitCommitment call.
type submission struct {
	requestID protocol.Hash
	signature []byte
	publicKey []byte
	payload   []byte
}

// fakeAggregator is an in-memory Aggregator for resolver tests. Proofs are
// returned in sequence, repeating the last one; submissions are recorded.
type fakeAggregator struct {
	submitStatus SubmitStatus
	submitErr    error
	submissions  []submission

	proofs    []*protocol.InclusionProof
	proofErrs []error
	polls     int
}

func (f *fakeAggregator) SubmitCommitment(requestID protocol.Hash, signature, publicKey, payload []byte) (SubmitStatus, error) {
	f.submissions = append(f.submissions, submission{
		requestID: requestID,
		signature: signature,
		publicKey: publicKey,
		payload:   payload,
	})

	return f.submitStatus, f.submitErr
}

func (f *fakeAggregator) InclusionProof(requestID protocol.Hash) (*protocol.InclusionProof, error) {
	idx := f.polls
	f.polls++

	if idx < len(f.proofErrs) && f.proofErrs[idx] != nil {
		return nil, f.proofErrs[idx]
	}

	if len(f.proofs) == 0 {
		return &protocol.InclusionProof{}, nil
	}

	if idx >= len(f.proofs) {
		idx = len(f.proofs) - 1
	}

	return f.proofs[idx], nil
}

// testResolver builds a resolver with a simulated clock so polling runs
// without real waiting.
func testResolver(agg Aggregator, tb *protocol.TrustBase) *Resolver {
	base := time.Unix(1700000000, 0)
	elapsed := time.Duration(0)

	return &Resolver{
		Agg:       agg,
		TrustBase: tb,
		Interval:  10 * time.Millisecond,
		Timeout:   100 * time.Millisecond,
		Now:       func() time.Time { return base.Add(elapsed) },
		Sleep:     func(d time.Duration) { elapsed += d },
	}
}
