package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"AmberVault/client"
	"AmberVault/internal/protocol"
	"AmberVault/internal/transfer"
)

// commonFlags holds the flags shared by every subcommand.
type commonFlags struct {
	// Gateway is the aggregator gateway address (host:port).
	Gateway string

	// TrustBasePath is the trust base JSON file.
	TrustBasePath string

	// KeyPath is the signing key seed file (generated if missing).
	KeyPath string

	// Masked derives a one-time key from the seed and Nonce.
	Masked bool

	// Nonce is the hex nonce for masked key derivation.
	Nonce string

	// WalletPath is the local token store directory.
	WalletPath string

	// Timeout bounds proof polling.
	Timeout time.Duration

	// HTTP3 switches the gateway connection to HTTP/3 over QUIC.
	HTTP3 bool

	// Verbose enables debug logging.
	Verbose bool
}

// addCommonFlags registers the shared flags on a subcommand flag set.
func addCommonFlags(fs *flag.FlagSet, cf *commonFlags) {
	fs.StringVar(&cf.Gateway, "gateway", "127.0.0.1:8545", "Aggregator gateway address")
	fs.StringVar(&cf.TrustBasePath, "trustbase", "trustbase.json", "Trust base JSON file")
	fs.StringVar(&cf.KeyPath, "key", "wallet.key", "Signing key seed file (generates new if missing)")
	fs.BoolVar(&cf.Masked, "masked", false, "Derive a one-time key from the seed and -nonce")
	fs.StringVar(&cf.Nonce, "nonce", "", "Hex nonce for masked key derivation")
	fs.StringVar(&cf.WalletPath, "wallet", "./wallet-db", "Wallet store directory")
	fs.DurationVar(&cf.Timeout, "timeout", 30*time.Second, "Proof polling timeout")
	fs.BoolVar(&cf.HTTP3, "http3", false, "Use HTTP/3 over QUIC to reach the gateway")
	fs.BoolVar(&cf.Verbose, "v", false, "Enable debug logging")
}

// loadSigner loads the signing key from the seed file, creating a fresh
// seed when the file does not exist yet. With -masked the one-time key is
// derived from the seed and the nonce.
func loadSigner(cf *commonFlags) (*protocol.Signer, error) {
	seed, err := loadOrGenerateSeed(cf.KeyPath)
	if err != nil {
		return nil, err
	}

	if !cf.Masked {
		return protocol.NewSigner(seed)
	}

	if cf.Nonce == "" {
		return nil, fmt.Errorf("-masked requires -nonce")
	}

	nonce, err := hex.DecodeString(cf.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce hex:\n%w", err)
	}

	return protocol.DeriveMaskedSigner(seed, nonce)
}

// loadOrGenerateSeed loads the key seed from file or generates a new one.
func loadOrGenerateSeed(keyPath string) ([]byte, error) {
	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveSeed(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != protocol.SeedSize {
		return nil, fmt.Errorf("invalid seed size: got %d, want %d", len(data), protocol.SeedSize)
	}

	return data, nil
}

// generateAndSaveSeed creates a new random seed and saves it to the given path.
func generateAndSaveSeed(path string) ([]byte, error) {
	seed := make([]byte, protocol.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed:\n%w", err)
	}

	if err := os.WriteFile(path, seed, 0600); err != nil {
		return nil, fmt.Errorf("save seed to %s:\n%w", path, err)
	}

	return seed, nil
}

// newResolver connects to the gateway and builds a resolver anchored on
// the trust base file.
func newResolver(cf *commonFlags) (*transfer.Resolver, error) {
	tb, err := protocol.LoadTrustBase(cf.TrustBasePath)
	if err != nil {
		return nil, err
	}

	gw, err := client.New(cf.Gateway, cf.HTTP3)
	if err != nil {
		return nil, err
	}

	r := transfer.NewResolver(gw, tb)
	r.Timeout = cf.Timeout

	return r, nil
}
