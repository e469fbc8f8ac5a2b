package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"AmberVault/internal/token"
)

// packageMagic identifies a transfer package file.
// Layout: 4 magic bytes + 1 version byte + zstd-compressed JSON token.
var packageMagic = []byte("AVTP")

// packageVersion is the current package format version.
const packageVersion byte = 1

// EncodePackage serializes a token, including any pending transaction with
// its stored signer authorization, into the transportable package format.
func EncodePackage(t *token.Token) ([]byte, error) {
	if err := validateEntries(t); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal token:\n%w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer:\n%w", err)
	}
	defer enc.Close()

	out := make([]byte, 0, len(raw)/2+len(packageMagic)+1)
	out = append(out, packageMagic...)
	out = append(out, packageVersion)

	return enc.EncodeAll(raw, out), nil
}

// DecodePackage parses a transfer package back into a token and validates
// the tagged-union shape of every transaction entry.
func DecodePackage(data []byte) (*token.Token, error) {
	if len(data) < len(packageMagic)+1 || !bytes.Equal(data[:len(packageMagic)], packageMagic) {
		return nil, errKind(ErrStructural, "not a transfer package: bad magic")
	}

	if v := data[len(packageMagic)]; v != packageVersion {
		return nil, errKind(ErrStructural, "unsupported package version %d", v)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader:\n%w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data[len(packageMagic)+1:], nil)
	if err != nil {
		return nil, errKind(ErrStructural, "decompress package: %v", err)
	}

	var t token.Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, errKind(ErrStructural, "parse package: %v", err)
	}

	if err := t.Validate(); err != nil {
		return nil, errKind(ErrStructural, "invalid token: %v", err)
	}

	if err := validateEntries(&t); err != nil {
		return nil, err
	}

	return &t, nil
}

// validateEntries enforces the tagged union on every transaction entry:
// exactly one of proof (resolved) or signerAuthorization (unresolved).
// An unresolved entry without the stored triple is a package nobody can
// ever submit; it gets the distinct legacy error kind.
func validateEntries(t *token.Token) error {
	for i := range t.Transactions {
		e := &t.Transactions[i]

		switch {
		case e.Proof != nil && e.SignerAuthorization != nil:
			return errKind(ErrStructural, "transaction %d is both resolved and unresolved", i)
		case e.Proof == nil && e.SignerAuthorization == nil:
			return errKind(ErrLegacyPackage,
				"transaction %d has neither proof nor signer authorization; the package predates stored authorizations and cannot be submitted", i)
		}
	}

	return nil
}

// WritePackageFile writes a package atomically: the bytes go to a temp
// file in the target directory which is then renamed over the destination,
// so concurrent resolvers never observe a partial file.
func WritePackageFile(path string, t *token.Token) error {
	data, err := EncodePackage(t)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".avtp-*")
	if err != nil {
		return fmt.Errorf("create temp file:\n%w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write package:\n%w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close package:\n%w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace package file:\n%w", err)
	}

	return nil
}

// ReadPackageFile reads and decodes a package file.
func ReadPackageFile(path string) (*token.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read package file:\n%w", err)
	}

	return DecodePackage(data)
}
