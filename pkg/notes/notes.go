// Package notes composes a vault with the property store: read a note's
// properties, apply a validated merge, and write the note back with its
// body untouched.
package notes

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vaultmd/vaultmd/pkg/properties"
	"github.com/vaultmd/vaultmd/pkg/vault"
)

// UpdateResult is the outcome of a property update. Updates never panic
// and never surface a Go error: callers always inspect Success, so no
// exception handling is needed around the call.
type UpdateResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// Service reads and updates note properties through a vault.
type Service struct {
	vault  vault.Vault
	writer vault.Writer
	store  *properties.Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore shares a configured property store with the service.
func WithStore(store *properties.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets the logger for update diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service over v. If the vault also implements
// vault.Writer, updates can be written back; otherwise Update reports a
// read-only failure.
func NewService(v vault.Vault, opts ...Option) *Service {
	s := &Service{
		vault:  v,
		store:  properties.NewStore(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if writer, ok := v.(vault.Writer); ok {
		s.writer = writer
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Properties returns the parsed frontmatter record of one note.
func (s *Service) Properties(ctx context.Context, path string) (properties.Record, error) {
	content, err := s.vault.Fetch(ctx, path)
	if err != nil {
		return properties.Record{}, fmt.Errorf("reading note: %w", err)
	}

	return s.store.Parse(content), nil
}

// Update validates and merges an update payload into the note at path,
// then writes the note back. The note body is preserved byte for byte;
// only the frontmatter block is rewritten.
func (s *Service) Update(ctx context.Context, path string, updates map[string]any, replace bool) UpdateResult {
	validation := s.store.Validate(updates)
	if !validation.Valid {
		return UpdateResult{
			Message: "update payload failed validation",
			Errors:  validation.Errors,
		}
	}

	content, err := s.vault.Fetch(ctx, path)
	if err != nil {
		return UpdateResult{
			Message: fmt.Sprintf("cannot read note %q", path),
			Errors:  []string{err.Error()},
		}
	}

	existing := s.store.Parse(content)
	merged := s.store.Merge(existing, properties.FromMap(updates), replace)

	block, err := s.store.Generate(merged)
	if err != nil {
		return UpdateResult{
			Message: "merged properties cannot be serialized",
			Errors:  []string{err.Error()},
		}
	}

	if s.writer == nil {
		return UpdateResult{
			Message: "vault is read-only",
		}
	}

	rewritten := make([]byte, 0, len(block)+len(content))
	rewritten = append(rewritten, block...)
	rewritten = append(rewritten, properties.Body(content)...)

	if err := s.writer.Store(ctx, path, rewritten); err != nil {
		return UpdateResult{
			Message: fmt.Sprintf("cannot write note %q", path),
			Errors:  []string{err.Error()},
		}
	}

	s.logger.Debug("properties updated", "path", path, "replace", replace)

	return UpdateResult{
		Success: true,
		Message: "properties updated",
	}
}
