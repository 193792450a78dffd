package testutil

import (
	"fh-go/internal/fh"
	"fh-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() fh.Vault {
	return vault.NewMemoryVault("test-vault")
}
