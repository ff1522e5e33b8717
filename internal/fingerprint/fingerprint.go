// Package fingerprint derives the content-addressed cache key for a
// document + configuration pair.
package fingerprint

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
)

// New computes the BLAKE2b-256 digest of the raw file bytes followed by the
// canonical YAML encoding of the fingerprint-relevant configuration subset.
// Identical bytes and configuration always yield the same fingerprint; any
// change to either yields a different one.
func New(fileBytes []byte, cfg config.Config) (domain.Fingerprint, error) {
	if len(fileBytes) == 0 {
		return "", domain.InputError("cannot fingerprint empty document", nil)
	}

	canonical, err := yaml.Marshal(cfg.Fingerprintable())
	if err != nil {
		return "", domain.InputError("serializing fingerprint config", err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", domain.InputError("initializing hash", err)
	}
	h.Write(fileBytes)
	h.Write(canonical)

	return domain.Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
