package transfer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"AmberVault/internal/token"
)

// =============================================================================
// Transfer Package Codec
// =============================================================================

// pendingToken builds a token with an unresolved tail entry.
func pendingToken(t *testing.T) (*token.Token, *Commitment) {
	t.Helper()

	owner := testSigner(t)
	tok := testToken(t, owner)

	c, err := BuildCommitment(tok, testAddress(t, testSigner(t)), owner, Options{})
	if err != nil {
		t.Fatalf("build commitment: %v", err)
	}

	if err := tok.AppendPending(c.Entry()); err != nil {
		t.Fatalf("append pending: %v", err)
	}

	return tok, c
}

// TestPackageRoundTrip_Unresolved verifies encode → decode of a package
// with a pending entry reproduces the signer authorization byte for byte.
func TestPackageRoundTrip_Unresolved(t *testing.T) {
	tok, c := pendingToken(t)

	data, err := EncodePackage(tok)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodePackage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	entry := decoded.PendingEntry()
	if entry == nil {
		t.Fatal("decoded package lost its pending entry")
	}

	auth := entry.SignerAuthorization
	if auth == nil {
		t.Fatal("decoded pending entry lost its signer authorization")
	}

	if !bytes.Equal(auth.Signature, c.Signature) {
		t.Error("signature not byte-identical after round trip")
	}
	if !bytes.Equal(auth.PublicKey, c.SignerPublicKey) {
		t.Error("public key not byte-identical after round trip")
	}
	if auth.RequestID != c.RequestID {
		t.Error("request ID changed in round trip")
	}
	if entry.Payload.Hash() != c.TransactionHash {
		t.Error("payload hash changed in round trip")
	}
}

// TestPackageRoundTrip_Resolved verifies a resolved entry keeps its proof
// fields intact through the codec.
func TestPackageRoundTrip_Resolved(t *testing.T) {
	tok, c := pendingToken(t)
	_, keys := testTrustBase(t, 3)

	tail := tok.PendingEntry()
	tail.Proof = provenProof(t, c, keys)
	tail.SignerAuthorization = nil

	data, err := EncodePackage(tok)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodePackage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got := decoded.Transactions[len(decoded.Transactions)-1].Proof
	if got == nil {
		t.Fatal("decoded entry lost its proof")
	}

	if got.TransactionHash != c.TransactionHash {
		t.Error("proof transaction hash changed in round trip")
	}
	if got.Authenticator == nil || got.Authenticator.StateHash != c.Payload.SourceStateHash {
		t.Error("proof authenticator changed in round trip")
	}
	if !bytes.Equal(got.Certificate.AggregateSignature, tail.Proof.Certificate.AggregateSignature) {
		t.Error("certificate signature changed in round trip")
	}
}

// TestDecodePackage_LegacyEntry verifies an entry with neither proof nor
// authorization surfaces the distinct legacy kind, not a generic parse
// failure: such packages are permanently unresolvable.
func TestDecodePackage_LegacyEntry(t *testing.T) {
	tok, _ := pendingToken(t)
	tok.PendingEntry().SignerAuthorization = nil

	_, err := EncodePackage(tok)
	if !errors.Is(err, ErrLegacyPackage) {
		t.Errorf("expected ErrLegacyPackage, got %v", err)
	}
}

// TestDecodePackage_BothSet verifies an entry that is simultaneously
// resolved and unresolved is rejected as structural.
func TestDecodePackage_BothSet(t *testing.T) {
	tok, c := pendingToken(t)
	_, keys := testTrustBase(t, 1)
	tok.PendingEntry().Proof = provenProof(t, c, keys)

	_, err := EncodePackage(tok)
	if !errors.Is(err, ErrStructural) {
		t.Errorf("expected ErrStructural, got %v", err)
	}
}

// TestDecodePackage_BadMagic verifies foreign bytes are rejected as
// structural.
func TestDecodePackage_BadMagic(t *testing.T) {
	_, err := DecodePackage([]byte("definitely not a package"))
	if !errors.Is(err, ErrStructural) {
		t.Errorf("expected ErrStructural, got %v", err)
	}
}

// TestDecodePackage_TruncatedBody verifies a corrupted compressed body is
// rejected as structural, not with a raw decompression panic.
func TestDecodePackage_TruncatedBody(t *testing.T) {
	tok, _ := pendingToken(t)

	data, err := EncodePackage(tok)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, err = DecodePackage(data[:len(data)/2])
	if !errors.Is(err, ErrStructural) {
		t.Errorf("expected ErrStructural, got %v", err)
	}
}

// TestWritePackageFile_Atomic verifies the file lands complete and no temp
// files are left behind.
func TestWritePackageFile_Atomic(t *testing.T) {
	tok, _ := pendingToken(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "transfer.avtp")

	if err := WritePackageFile(path, tok); err != nil {
		t.Fatalf("write package: %v", err)
	}

	decoded, err := ReadPackageFile(path)
	if err != nil {
		t.Fatalf("read package: %v", err)
	}

	if decoded.ID != tok.ID {
		t.Error("token ID changed through file round trip")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}

	if len(entries) != 1 {
		t.Errorf("expected only the package file in %s, found %d entries", dir, len(entries))
	}
}
