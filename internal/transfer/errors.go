// Package transfer implements the transfer-commitment lifecycle: building
// signed commitments, packaging them for offline transport, submitting and
// resolving them against the aggregator, and verifying that a returned
// proof corresponds to the caller's exact request.
package transfer

import "fmt"

// Kind identifies the failure class of a transfer error. Kinds are
// comparable with errors.Is, so callers can branch on the taxonomy
// without string matching.
type Kind string

const (
	// ErrStructural marks a malformed package: an unresolved entry without
	// its stored signer authorization, an entry that is both resolved and
	// unresolved, or a corrupt container. Never retried.
	ErrStructural = Kind("structural defect")

	// ErrLegacyPackage marks a package written before signer authorizations
	// were stored. Such packages are permanently unresolvable: nobody can
	// submit them.
	ErrLegacyPackage = Kind("legacy package without signer authorization")

	// ErrCrypto marks a signature or hash check failure from the protocol
	// primitives. Fatal.
	ErrCrypto = Kind("cryptographic verification failure")

	// ErrWrongProof marks a proof whose authenticator names a different
	// source state than ours: a mislabeled proof, transport corruption, or
	// a misbehaving aggregator. Fatal.
	ErrWrongProof = Kind("proof does not correspond to this source state")

	// ErrDoubleSpent marks a proof for the right source state but a
	// different transaction: someone else's transfer of this state was
	// accepted first. Fatal, user-actionable.
	ErrDoubleSpent = Kind("source state already spent to someone else")

	// ErrNetwork marks an unreachable aggregator. Recoverable; on-disk
	// state is left unchanged so the operation can be retried.
	ErrNetwork = Kind("aggregator unreachable")

	// ErrTimeout marks a polling deadline hit before a proof appeared.
	// Recoverable; retrying is always safe.
	ErrTimeout = Kind("timed out waiting for inclusion proof")

	// ErrOwnership marks a signing key that does not match the token's
	// current predicate. Local-only precondition, zero network cost.
	ErrOwnership = Kind("signing key does not match token owner")
)

// Error satisfies the error interface.
func (k Kind) Error() string {
	return string(k)
}

// Error is a transfer failure with a kind and a human-readable description.
type Error struct {
	Kind        Kind   // Kind is the failure class
	Description string // Description has the specifics
}

// Error satisfies the error interface.
func (e Error) Error() string {
	return e.Description
}

// Unwrap makes errors.Is(err, Kind) work.
func (e Error) Unwrap() error {
	return e.Kind
}

// errKind builds an Error with a formatted description.
func errKind(kind Kind, format string, args ...any) Error {
	return Error{
		Kind:        kind,
		Description: fmt.Sprintf(format, args...),
	}
}
