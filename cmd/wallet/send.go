package main

import (
	"flag"
	"fmt"

	"AmberVault/internal/address"
	"AmberVault/internal/logger"
	"AmberVault/internal/protocol"
	"AmberVault/internal/token"
	"AmberVault/internal/transfer"
	"AmberVault/internal/wallet"
)

// runSend builds a transfer commitment for a stored token. With -offline
// the pending transfer is written to a package file for out-of-band
// transport; with -submit-now it is submitted and resolved immediately.
func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)

	var cf commonFlags
	addCommonFlags(fs, &cf)

	tokenID := fs.String("token", "", "Token ID (hex) from the wallet store")
	to := fs.String("to", "", "Recipient address")
	message := fs.String("message", "", "Optional note carried in the payload")
	dataHashHex := fs.String("data-hash", "", "Optional hex hash the recipient's state data must match")
	offline := fs.String("offline", "", "Write the unresolved transfer to this package file")
	submitNow := fs.Bool("submit-now", false, "Submit and resolve the transfer immediately")
	skipOwnership := fs.Bool("skip-ownership-check", false, "Skip the local owner-key precondition (delegation/testing)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Init(cf.Verbose)

	if (*offline == "") == !*submitNow {
		return fmt.Errorf("exactly one of -offline or -submit-now is required")
	}

	if *to == "" {
		return fmt.Errorf("-to is required")
	}

	if !address.IsValid(*to) {
		return fmt.Errorf("invalid recipient address %q", *to)
	}

	id, err := protocol.ParseHash(*tokenID)
	if err != nil {
		return fmt.Errorf("invalid -token:\n%w", err)
	}

	signer, err := loadSigner(&cf)
	if err != nil {
		return err
	}

	store, err := wallet.Open(cf.WalletPath)
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.Get(id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("token %s not in wallet", id.Short())
	}

	opts := transfer.Options{
		SkipOwnershipCheck: *skipOwnership,
	}
	if *message != "" {
		opts.Message = []byte(*message)
	}
	if *dataHashHex != "" {
		h, err := protocol.ParseHash(*dataHashHex)
		if err != nil {
			return fmt.Errorf("invalid -data-hash:\n%w", err)
		}
		opts.RecipientDataHash = &h
	}

	commitment, err := transfer.BuildCommitment(t, *to, signer, opts)
	if err != nil {
		return err
	}

	if err := t.AppendPending(commitment.Entry()); err != nil {
		return err
	}

	logger.Info("commitment built",
		"token", t.ID.Short(),
		"requestId", commitment.RequestID.Short(),
		"recipient", *to,
	)

	if *offline != "" {
		return sendOffline(store, t, *offline)
	}

	resolver, err := newResolver(&cf)
	if err != nil {
		return err
	}

	return sendNow(resolver, store, t)
}

// sendOffline writes the unresolved transfer to a package file. The sender
// keeps a copy in the wallet; once the file is handed over, this process
// has no further authority over the transfer.
func sendOffline(store *wallet.Store, t *token.Token, path string) error {
	if err := transfer.WritePackageFile(path, t); err != nil {
		return err
	}

	if err := store.Put(t); err != nil {
		return err
	}

	logger.Info("transfer package written", "path", path, "token", t.ID.Short())
	fmt.Println(path)

	return nil
}

// sendNow persists the pending transfer, then submits and polls until it
// resolves. The entry must be stored before anything reaches the network:
// if polling times out after the submission landed, the stored
// authorization is the only thing that can ever resolve this transfer.
// Building a fresh commitment instead would collide with the earlier
// submission under the same request ID.
func sendNow(resolver *transfer.Resolver, store *wallet.Store, t *token.Token) error {
	if err := store.Put(t); err != nil {
		return err
	}

	if _, err := resolver.Resolve(t); err != nil {
		return err
	}

	if err := store.Put(t); err != nil {
		return err
	}

	logger.Info("transfer resolved",
		"token", t.ID.Short(),
		"status", token.Classify(t),
	)

	return nil
}
