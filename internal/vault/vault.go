// Package vault provides off-site replicas for snapshot files.
package vault

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for a name the vault does not hold.
var ErrNotFound = errors.New("object not found in vault")

// checkName rejects names that could escape the vault's namespace.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}
