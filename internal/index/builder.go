package index

import (
	"encoding/json"
	"sort"
	"time"
)

// Build assembles extracted chunks into a snapshot. It is a pure aggregation
// step: it sorts the chunks, inverts their error messages into the index map,
// and fills in the totals. It performs no I/O and never re-reads source files.
//
// Counting rule: every error_messages entry is one occurrence, once per call
// site. The same message text appearing at two call sites counts twice.
func Build(chunks []Chunk, stats Stats) *Snapshot {
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FilePath != sorted[j].FilePath {
			return sorted[i].FilePath < sorted[j].FilePath
		}
		return sorted[i].LineStart < sorted[j].LineStart
	})

	errorIndex := make(map[string][]Entry)
	totalErrors := 0
	for _, c := range sorted {
		for _, m := range c.ErrorMessages {
			if m.Message == "" {
				continue
			}
			key := NormalizeMessage(m.Message)
			errorIndex[key] = append(errorIndex[key], Entry{
				ChunkID:         c.ChunkID,
				OriginalMessage: m.Message,
				LogLevel:        m.LogLevel,
				SourceType:      m.SourceType,
			})
			totalErrors++
		}
	}

	stats.FunctionsFound = len(sorted)
	stats.ErrorsFound = totalErrors

	return &Snapshot{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Chunks:        sorted,
		ErrorIndex:    errorIndex,
		Stats:         stats,
		TotalChunks:   len(sorted),
		TotalErrors:   totalErrors,
	}
}

// Marshal serializes a snapshot to the index file format. Map keys are
// emitted in sorted order by encoding/json, so identical snapshots produce
// identical bytes apart from created_at.
func Marshal(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
