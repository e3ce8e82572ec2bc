// Package dirvault implements vault access for a plain directory of
// markdown notes. Note paths are slash-separated and relative to the
// vault root; hidden files and directories are ignored.
package dirvault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/vaultmd/vaultmd/pkg/vault"
)

const noteExtension = ".md"

// Path validation errors.
var errInvalidPath = errors.New("invalid note path")

// Vault reads and writes notes under a root directory.
type Vault struct {
	root string
}

// Open validates that root exists and is a directory.
func Open(root string) (*Vault, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("vault root %q: %w", root, vault.ErrNotFound)
		}

		return nil, fmt.Errorf("stat vault root: %w: %v", vault.ErrIO, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %q is not a directory: %w", root, errInvalidPath)
	}

	return &Vault{root: root}, nil
}

// Root returns the vault root directory.
func (v *Vault) Root() string {
	return v.root
}

// List returns the relative paths of all markdown notes, walking
// recursively. A non-empty scope restricts the walk to that subtree; a
// scope that does not exist is an error, not an empty listing.
func (v *Vault) List(ctx context.Context, scope string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("canceled: %w", err)
	}

	start := "."
	if scope != "" {
		if err := validatePath(scope); err != nil {
			return nil, err
		}

		start = scope
	}

	var paths []string

	walkErr := fs.WalkDir(os.DirFS(v.root), start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("scope %q: %w", scope, vault.ErrNotFound)
			}

			return fmt.Errorf("walking vault: %w: %v", vault.ErrIO, err)
		}

		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("canceled: %w", cerr)
		}

		name := d.Name()

		if d.IsDir() {
			// Skip hidden directories, but never the walk root itself
			// (a scope like ".archive" was validated and asked for).
			if p != start && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}

			return nil
		}

		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, noteExtension) {
			return nil
		}

		paths = append(paths, p)

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return paths, nil
}

// Fetch reads the raw content of one note.
func (v *Vault) Fetch(ctx context.Context, notePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("canceled: %w", err)
	}

	if err := validatePath(notePath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(v.abs(notePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("note %q: %w", notePath, vault.ErrNotFound)
		}

		return nil, fmt.Errorf("reading note %q: %w: %v", notePath, vault.ErrIO, err)
	}

	return content, nil
}

// Store atomically replaces the content of one note, creating parent
// directories as needed. A concurrent reader sees either the old or the
// new content, never a partial write.
func (v *Vault) Store(ctx context.Context, notePath string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("canceled: %w", err)
	}

	if err := validatePath(notePath); err != nil {
		return err
	}

	target := v.abs(notePath)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating note directory: %w: %v", vault.ErrIO, err)
	}

	if err := atomic.WriteFile(target, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("writing note %q: %w: %v", notePath, vault.ErrIO, err)
	}

	return nil
}

func (v *Vault) abs(notePath string) string {
	return filepath.Join(v.root, filepath.FromSlash(notePath))
}

// validatePath checks a note or scope path: relative, clean, slash
// separated, and unable to escape the vault root.
func validatePath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty", errInvalidPath)
	}

	if strings.Contains(p, "\\") {
		return fmt.Errorf("%w: %q must use forward slashes", errInvalidPath, p)
	}

	if path.IsAbs(p) {
		return fmt.Errorf("%w: %q is absolute", errInvalidPath, p)
	}

	if path.Clean(p) != p {
		return fmt.Errorf("%w: %q is not clean", errInvalidPath, p)
	}

	if p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("%w: %q escapes the vault", errInvalidPath, p)
	}

	return nil
}
