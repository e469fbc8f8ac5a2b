package main

import (
	"flag"
	"fmt"

	"AmberVault/internal/address"
	"AmberVault/internal/logger"
	"AmberVault/internal/token"
	"AmberVault/internal/transfer"
	"AmberVault/internal/wallet"
)

// runMint creates a token, proves its genesis against the aggregator and
// stores it in the wallet.
func runMint(args []string) error {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)

	var cf commonFlags
	addCommonFlags(fs, &cf)

	tokenType := fs.String("type", "token", "Application token type")
	data := fs.String("data", "", "Optional genesis state data (text)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Init(cf.Verbose)

	signer, err := loadSigner(&cf)
	if err != nil {
		return err
	}

	resolver, err := newResolver(&cf)
	if err != nil {
		return err
	}

	params := transfer.MintParams{
		Type: *tokenType,
		Data: []byte(*data),
	}
	if cf.Masked {
		params.PredicateType = token.PredicateMasked
	}

	t, err := transfer.Mint(resolver, signer, params)
	if err != nil {
		return fmt.Errorf("mint token:\n%w", err)
	}

	store, err := wallet.Open(cf.WalletPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Put(t); err != nil {
		return err
	}

	ownerAddr, err := address.Encode(t.CurrentState.Predicate.Hash())
	if err != nil {
		return err
	}

	logger.Info("token minted",
		"id", t.ID,
		"type", t.Type,
		"owner", ownerAddr,
	)

	fmt.Println(t.ID)

	return nil
}
