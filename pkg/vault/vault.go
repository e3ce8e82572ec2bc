// Package vault defines the collaborator contract for note storage.
//
// The tag index and the property service never touch storage directly.
// They consume a Vault: something that can enumerate markdown notes and
// fetch their raw content. Implementations live in subpackages (dirvault
// for a local directory, restvault for a local REST note server).
package vault

import (
	"context"
	"errors"
)

// Vault error kinds. Implementations wrap these so callers can classify
// failures with errors.Is without depending on a concrete backend.
var (
	// ErrNotFound reports that a note or scope does not exist.
	ErrNotFound = errors.New("note not found")

	// ErrIO reports a storage-level failure (disk, network, bad response).
	ErrIO = errors.New("vault i/o failure")
)

// Lister enumerates markdown notes.
type Lister interface {
	// List returns the paths of all markdown notes, recursively.
	// A non-empty scope restricts the listing to that subtree.
	// Paths are slash-separated and relative to the vault root.
	List(ctx context.Context, scope string) ([]string, error)
}

// Fetcher reads raw note content.
type Fetcher interface {
	// Fetch returns the raw bytes of the note at path.
	// Returns an error wrapping ErrNotFound if the note does not exist.
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Writer writes note content back to storage. Optional: read-only
// backends simply don't implement it.
type Writer interface {
	// Store replaces the content of the note at path.
	Store(ctx context.Context, path string, content []byte) error
}

// Vault is the read surface consumed by the tag index.
type Vault interface {
	Lister
	Fetcher
}
