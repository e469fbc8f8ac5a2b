package main

import (
	"flag"
	"fmt"

	"AmberVault/internal/logger"
	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
	"AmberVault/internal/transfer"
	"AmberVault/internal/wallet"
)

// runVerify re-checks a package file or a stored token: structure,
// proof correspondence of the latest resolved transfer, certificate
// verification against the trust base, and optionally an advisory
// on-chain staleness cross-check.
func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)

	var cf commonFlags
	addCommonFlags(fs, &cf)

	in := fs.String("in", "", "Transfer package file to verify")
	tokenID := fs.String("token", "", "Stored token ID (hex) to verify instead of a file")
	checkStale := fs.Bool("check-stale", false, "Cross-check against the aggregator for staleness (advisory)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Init(cf.Verbose)

	t, err := loadVerifyTarget(&cf, *in, *tokenID)
	if err != nil {
		return err
	}

	tb, err := protocol.LoadTrustBase(cf.TrustBasePath)
	if err != nil {
		return err
	}

	if err := verifyResolvedTail(t, tb); err != nil {
		return err
	}

	status := token.Classify(t)

	if *checkStale {
		status = crossCheck(&cf, t, status)
	}

	logger.Info("verification passed", "token", t.ID.Short(), "status", status)
	fmt.Println(status)

	return nil
}

// loadVerifyTarget reads the token either from a package file or from the
// wallet store.
func loadVerifyTarget(cf *commonFlags, in, tokenID string) (*token.Token, error) {
	if (in == "") == (tokenID == "") {
		return nil, fmt.Errorf("exactly one of -in or -token is required")
	}

	if in != "" {
		return transfer.ReadPackageFile(in)
	}

	id, err := protocol.ParseHash(tokenID)
	if err != nil {
		return nil, fmt.Errorf("invalid -token:\n%w", err)
	}

	store, err := wallet.Open(cf.WalletPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	t, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("token %s not in wallet", id.Short())
	}

	return t, nil
}

// verifyResolvedTail re-verifies the latest resolved transaction: the
// proof must correspond to its own payload and hold cryptographically
// under the trust base. The genesis proof is checked when no transfer
// exists yet.
func verifyResolvedTail(t *token.Token, tb *protocol.TrustBase) error {
	entry := latestResolved(t)
	if entry == nil {
		// A pending tail with no resolved predecessor: only structure to check.
		return nil
	}

	auth := entry.Proof.Authenticator
	if auth == nil {
		return fmt.Errorf("resolved transaction carries an exclusion proof")
	}

	if err := transfer.VerifyCorrespondence(entry.Proof, entry.Payload.SourceStateHash, entry.Payload.Hash()); err != nil {
		return err
	}

	requestID := protocol.RequestID(auth.PublicKey, entry.Payload.SourceStateHash)
	if err := protocol.VerifyProof(entry.Proof, requestID, tb); err != nil {
		return fmt.Errorf("verify proof:\n%w", err)
	}

	return nil
}

// latestResolved returns the most recent proof-bearing entry, falling back
// to the genesis transaction.
func latestResolved(t *token.Token) *token.TransactionEntry {
	for i := len(t.Transactions) - 1; i >= 0; i-- {
		if t.Transactions[i].Resolved() {
			return &t.Transactions[i]
		}
	}

	return t.Genesis
}

// crossCheck queries the aggregator for the current state's request ID.
// Network failures downgrade to a warning: the check is advisory and must
// never block local verification.
func crossCheck(cf *commonFlags, t *token.Token, status token.Status) token.Status {
	resolver, err := newResolver(cf)
	if err != nil {
		logger.Warn("staleness check skipped, aggregator unavailable", "error", err)
		return status
	}

	stale, err := transfer.CheckStale(resolver.Agg, t)
	if err != nil {
		logger.Warn("staleness check failed", "error", err)
		return status
	}

	if stale {
		logger.Warn("local copy is stale: current state already spent elsewhere",
			"token", t.ID.Short(),
		)
		return token.StatusTransferredAway
	}

	return status
}
