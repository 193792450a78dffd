package fh

import "io"

// Vault is an off-site replica of snapshot files.
// All operations use io.Reader/io.Writer for streaming.
type Vault interface {
	// Put stores an object under name, replacing any previous object.
	// size is the number of bytes that will be read from r.
	Put(name string, r io.Reader, size int64) error

	// Get writes the object stored under name to w.
	Get(name string, w io.Writer) error

	// List returns the names of all stored objects.
	List() ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
