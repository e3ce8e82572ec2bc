// Package properties parses, generates, validates, and merges the YAML
// frontmatter block at the head of a markdown note.
//
// Frontmatter is delimited by a line containing exactly "---" at the very
// start of the note and a matching closing "---" line:
//
//	---
//	title: Weekly review
//	tags:
//	  - review
//	  - planning
//	custom:
//	  mood: good
//	---
//	note body...
//
// Parsing is deliberately forgiving: a note without a block, or with a
// block that does not decode, yields an empty record instead of an error.
// Schema violations inside a decodable block are logged and the
// best-effort data is returned (strict mode drops the offending fields
// instead). Only Generate can fail, and only when the record is
// structurally unencodable.
package properties

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// tagMarker is the prefix character stripped from tag entries.
// Tags are stored without it regardless of how they were written.
const tagMarker = '#'

const delimiter = "---"

var delimiterBytes = []byte(delimiter)

// Store converts between raw note content and Records.
//
// The zero value is not usable; construct with NewStore.
type Store struct {
	logger *slog.Logger
	now    func() time.Time
	strict bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for best-effort validation warnings.
// Passing nil keeps the default discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used to stamp the modified field during
// Merge. Tests use this to make timestamps deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStrictValidation makes Parse drop fields that fail schema
// validation instead of returning them best-effort. The default keeps
// the data and only logs a warning.
func WithStrictValidation(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// NewStore creates a Store with the given options.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Parse extracts the frontmatter record from raw note content.
//
// Parse never fails. A note without a delimited block, or with a block
// that is not valid YAML, yields the zero Record. Tag entries are
// normalized before validation, so callers always see tags without the
// leading marker character.
func (s *Store) Parse(doc []byte) Record {
	block, _, found := splitFrontmatter(doc)
	if !found {
		return Record{}
	}

	var raw map[string]any

	err := yaml.Unmarshal(block, &raw)
	if err != nil {
		s.logger.Warn("frontmatter does not decode, returning empty record", "error", err)

		return Record{}
	}

	if raw == nil {
		return Record{}
	}

	normalizeRawTags(raw)

	violations := checkSchema(raw, parseSchema)
	if len(violations) > 0 {
		s.logger.Warn("frontmatter fails schema validation",
			"violations", violations,
			"strict", s.strict,
		)
	}

	return recordFromMap(raw, s.strict)
}

// Generate encodes a record as a delimited frontmatter block using the
// platform line-ending convention. Fields with absent values are
// dropped. Returns an error wrapping ErrSerialize when the record cannot
// be encoded (e.g. a function value or cyclic data inside Custom).
func (s *Store) Generate(rec Record) (out []byte, err error) {
	// yaml.Marshal panics on some exotic inputs rather than returning an
	// error, and recurses without bound on cyclic data. Cycles and
	// unencodable kinds are rejected upfront; the recover is a backstop
	// for anything the walk cannot foresee.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrSerialize, r)
		}
	}()

	for _, custom := range []map[string]any{rec.Custom, rec.Extra} {
		for key, value := range custom {
			if cerr := checkEncodable(value, make(map[uintptr]struct{})); cerr != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrSerialize, key, cerr)
			}
		}
	}

	encoded, yerr := yaml.Marshal(rec.marshalDoc())
	if yerr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, yerr)
	}

	le := lineEnding()
	if le != "\n" {
		encoded = bytes.ReplaceAll(encoded, []byte("\n"), []byte(le))
	}

	var buf bytes.Buffer

	buf.Grow(len(encoded) + 2*(len(delimiter)+len(le)))
	buf.WriteString(delimiter)
	buf.WriteString(le)
	buf.Write(encoded)
	buf.WriteString(delimiter)
	buf.WriteString(le)

	return buf.Bytes(), nil
}

// Body returns the note content following the frontmatter block. For a
// note without a block, the content is returned unchanged.
func Body(doc []byte) []byte {
	_, body, _ := splitFrontmatter(doc)

	return body
}

// splitFrontmatter locates the delimited block at the start of doc.
// Returns the block content (without delimiter lines), the remaining
// body, and whether a complete block was found. Lines may end in CRLF.
func splitFrontmatter(doc []byte) (block, body []byte, found bool) {
	rest, ok := cutDelimiterLine(doc)
	if !ok {
		return nil, doc, false
	}

	idx := 0
	for idx < len(rest) {
		var line []byte

		next := idx

		nl := bytes.IndexByte(rest[idx:], '\n')
		if nl < 0 {
			line = rest[idx:]
			next = len(rest)
		} else {
			line = rest[idx : idx+nl]
			next = idx + nl + 1
		}

		if isDelimiterLine(line) {
			return rest[:idx], rest[next:], true
		}

		idx = next
	}

	// Opening delimiter without a closing one: not a block.
	return nil, doc, false
}

// cutDelimiterLine consumes the opening delimiter line at the start of
// doc, returning the remainder.
func cutDelimiterLine(doc []byte) ([]byte, bool) {
	nl := bytes.IndexByte(doc, '\n')
	if nl < 0 {
		return nil, false
	}

	if !isDelimiterLine(doc[:nl]) {
		return nil, false
	}

	return doc[nl+1:], true
}

func isDelimiterLine(line []byte) bool {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	return bytes.Equal(line, delimiterBytes)
}

func lineEnding() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}

	return "\n"
}

// normalizeRawTags rewrites the tags entry of a decoded map in place:
// marker characters are stripped, scalar entries become strings, and a
// bare string value becomes a single-entry list. Entries that are empty
// after stripping are dropped.
func normalizeRawTags(raw map[string]any) {
	v, ok := raw[fieldTags]
	if !ok {
		return
	}

	switch tags := v.(type) {
	case string:
		normalized := normalizeTag(tags)
		if normalized == "" {
			delete(raw, fieldTags)

			return
		}

		raw[fieldTags] = []any{normalized}
	case []any:
		out := make([]any, 0, len(tags))

		for _, item := range tags {
			str, isStr := item.(string)
			if !isStr {
				// Leave non-string items for the schema check to report.
				out = append(out, item)

				continue
			}

			normalized := normalizeTag(str)
			if normalized == "" {
				continue
			}

			out = append(out, normalized)
		}

		raw[fieldTags] = out
	}
}

// normalizeTag strips a single leading marker character.
func normalizeTag(tag string) string {
	if len(tag) > 0 && tag[0] == tagMarker {
		return tag[1:]
	}

	return tag
}

// normalizeTags normalizes and deduplicates a tag list, preserving
// first-seen order. Empty results are dropped.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		normalized := normalizeTag(tag)
		if normalized == "" {
			continue
		}

		if _, dup := seen[normalized]; dup {
			continue
		}

		seen[normalized] = struct{}{}

		out = append(out, normalized)
	}

	return out
}
