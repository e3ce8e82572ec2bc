// Package tagindex maintains an in-memory aggregation of tags across a
// markdown vault.
//
// The index is a derived, throwaway view: the notes themselves are the
// source of truth, and the aggregation is rebuilt wholesale by scanning
// the vault through its collaborator interface. Reads go through a
// staleness check so repeated queries inside the window are served from
// the cached snapshot without rescanning.
package tagindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vaultmd/vaultmd/pkg/properties"
	"github.com/vaultmd/vaultmd/pkg/vault"
)

// DefaultStaleAfter is the staleness window applied when no option
// overrides it: a cached snapshot older than this triggers a rebuild on
// the next read.
const DefaultStaleAfter = 5000 * time.Millisecond

// Index aggregates tag usage across a vault.
//
// An Index starts uninitialized; the first Snapshot call performs a full
// rebuild. Rebuilds are serialized: when several callers observe a stale
// cache at once, one rebuild runs and the late callers receive its
// result rather than starting their own scan.
type Index struct {
	vault      vault.Vault
	props      *properties.Store
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
	scope      string

	group singleflight.Group

	mu   sync.Mutex
	snap *Snapshot
}

// Option configures an Index.
type Option func(*Index)

// WithStaleAfter sets the staleness window. Non-positive values keep
// the default.
func WithStaleAfter(d time.Duration) Option {
	return func(ix *Index) {
		if d > 0 {
			ix.staleAfter = d
		}
	}
}

// WithClock sets the time source used for staleness checks and rebuild
// timestamps. Tests use this to control staleness deterministically.
func WithClock(now func() time.Time) Option {
	return func(ix *Index) {
		if now != nil {
			ix.now = now
		}
	}
}

// WithLogger sets the logger for skipped-document warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithScope restricts every scan to the given vault subtree.
func WithScope(scope string) Option {
	return func(ix *Index) {
		ix.scope = scope
	}
}

// WithProperties sets the property store used to extract per-note
// metadata. Use this to share a configured store (custom logger, strict
// mode) with the rest of the application.
func WithProperties(store *properties.Store) Option {
	return func(ix *Index) {
		if store != nil {
			ix.props = store
		}
	}
}

// New creates an Index over the given vault.
func New(v vault.Vault, opts ...Option) *Index {
	ix := &Index{
		vault:      v,
		props:      properties.NewStore(),
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ix)
		}
	}

	return ix
}

// Snapshot returns the current tag aggregation.
//
// An uninitialized index rebuilds first. A populated index rebuilds when
// the cached snapshot is older than the staleness window; otherwise the
// cached snapshot is returned unchanged, so two reads inside the window
// yield the identical *Snapshot. Rebuild failures propagate; there is no
// stale-data fallback.
func (ix *Index) Snapshot(ctx context.Context) (*Snapshot, error) {
	ix.mu.Lock()
	snap := ix.snap
	ix.mu.Unlock()

	if snap != nil && ix.now().Sub(snap.Stats.RebuiltAt) <= ix.staleAfter {
		return snap, nil
	}

	return ix.Rebuild(ctx)
}

// Rebuild discards the cached aggregation and rescans the vault.
// Concurrent calls share a single scan.
func (ix *Index) Rebuild(ctx context.Context) (*Snapshot, error) {
	result, err, _ := ix.group.Do("rebuild", func() (any, error) {
		return ix.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}

	snap, ok := result.(*Snapshot)
	if !ok {
		panic("tagindex: unexpected rebuild result type")
	}

	return snap, nil
}

// rebuild performs the sequential full scan. A fetch failure for one
// note is logged and that note skipped; a listing failure aborts the
// whole rebuild.
func (ix *Index) rebuild(ctx context.Context) (*Snapshot, error) {
	paths, err := ix.vault.List(ctx, ix.scope)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	tags := make(map[string]map[string]struct{})
	tagged := make(map[string]struct{})

	for _, path := range paths {
		content, fetchErr := ix.vault.Fetch(ctx, path)
		if fetchErr != nil {
			ix.logger.Warn("skipping unreadable note", "path", path, "error", fetchErr)

			continue
		}

		rec := ix.props.Parse(content)

		for _, tag := range rec.Tags {
			files, ok := tags[tag]
			if !ok {
				files = make(map[string]struct{})
				tags[tag] = files
			}

			files[path] = struct{}{}

			tagged[path] = struct{}{}
		}
	}

	snap := buildSnapshot(tags, len(tagged), ix.now())

	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()

	return snap, nil
}
