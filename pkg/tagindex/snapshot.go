package tagindex

import (
	"slices"
	"strings"
	"time"
)

// Entry is one tag with the notes that carry it. Count is always the
// cardinality of Files: it is derived, never tracked independently.
type Entry struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// Stats summarizes a snapshot.
type Stats struct {
	// TotalOccurrences is the sum of all entry counts. A note with
	// three tags contributes three.
	TotalOccurrences int `json:"total_occurrences"`

	// UniqueTags is the number of distinct tags.
	UniqueTags int `json:"unique_tags"`

	// DocumentsScanned counts notes that contributed at least one tag,
	// not every note visited.
	DocumentsScanned int `json:"documents_scanned"`

	// RebuiltAt is when this snapshot was built.
	RebuiltAt time.Time `json:"rebuilt_at"`
}

// Snapshot is an immutable tag aggregation. It is replaced wholesale on
// each rebuild and must not be modified by callers.
type Snapshot struct {
	Entries []Entry `json:"entries"`
	Stats   Stats   `json:"stats"`
}

// buildSnapshot derives the sorted report from the raw tag -> file-set
// aggregation. Entries are ordered by count descending, ties broken by
// name ascending (case-sensitive lexical order).
func buildSnapshot(tags map[string]map[string]struct{}, taggedDocs int, rebuiltAt time.Time) *Snapshot {
	entries := make([]Entry, 0, len(tags))
	total := 0

	for name, fileSet := range tags {
		files := make([]string, 0, len(fileSet))
		for file := range fileSet {
			files = append(files, file)
		}

		slices.Sort(files)

		entries = append(entries, Entry{
			Name:  name,
			Files: files,
			Count: len(files),
		})

		total += len(files)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}

		return strings.Compare(a.Name, b.Name)
	})

	return &Snapshot{
		Entries: entries,
		Stats: Stats{
			TotalOccurrences: total,
			UniqueTags:       len(entries),
			DocumentsScanned: taggedDocs,
			RebuiltAt:        rebuiltAt,
		},
	}
}
