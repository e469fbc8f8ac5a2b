package main

import (
	"flag"
	"fmt"

	"AmberVault/internal/address"
	"AmberVault/internal/logger"
	"AmberVault/internal/token"
	"AmberVault/internal/wallet"
)

// runShow lists stored tokens with their derived status.
func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)

	var cf commonFlags
	addCommonFlags(fs, &cf)

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Init(cf.Verbose)

	store, err := wallet.Open(cf.WalletPath)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := store.List()
	if err != nil {
		return err
	}

	if len(tokens) == 0 {
		fmt.Println("wallet is empty")
		return nil
	}

	for _, t := range tokens {
		fmt.Printf("%s  %-10s  %s  transfers=%d\n",
			t.ID, t.Type, token.Classify(t), len(t.Transactions))
	}

	return nil
}

// runAddress prints the receive address of this wallet's key: the bech32
// encoding of the predicate hash a sender addresses transfers to.
func runAddress(args []string) error {
	fs := flag.NewFlagSet("address", flag.ExitOnError)

	var cf commonFlags
	addCommonFlags(fs, &cf)

	if err := fs.Parse(args); err != nil {
		return err
	}

	logger.Init(cf.Verbose)

	signer, err := loadSigner(&cf)
	if err != nil {
		return err
	}

	predType := token.PredicateUnmasked
	if cf.Masked {
		predType = token.PredicateMasked
	}

	predicate := token.Predicate{
		Type:      predType,
		PublicKey: signer.PublicKey(),
	}

	addr, err := address.Encode(predicate.Hash())
	if err != nil {
		return err
	}

	fmt.Println(addr)

	return nil
}
