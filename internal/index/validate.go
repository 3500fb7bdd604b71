package index

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValidationError names the first check an index document failed and the
// offending field. Uploads come from technicians hand-carrying files off
// printers, so the message must say which field to fix.
type ValidationError struct {
	Check  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("index validation failed (%s): field %q: %s", e.Check, e.Field, e.Reason)
}

// Validate checks raw bytes claiming to be an index snapshot. Checks run in a
// fixed order and short-circuit on the first failure:
//
//  1. parses as a JSON document
//  2. required top-level keys present with correct container types
//  3. schema_version is one this build understands
//  4. total_chunks matches the chunks array length
//  5. total_errors matches the per-chunk error_messages count
//  6. every chunk_id is non-empty and never shared by differing content
//
// Duplicate chunk ids with identical content are collapsed, keeping the first
// occurrence. On success the deserialized snapshot is returned.
func Validate(raw []byte) (*Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &ValidationError{Check: "parse", Field: "", Reason: fmt.Sprintf("not a JSON document: %v", err)}
	}

	if err := checkShape(top); err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &ValidationError{Check: "shape", Field: "", Reason: fmt.Sprintf("document does not match index schema: %v", err)}
	}

	if !supportedSchemaVersions[snap.SchemaVersion] {
		return nil, &ValidationError{
			Check:  "schema_version",
			Field:  "schema_version",
			Reason: fmt.Sprintf("unsupported schema %q, this build understands %q", snap.SchemaVersion, SchemaVersion),
		}
	}

	if snap.TotalChunks != len(snap.Chunks) {
		return nil, &ValidationError{
			Check:  "total_chunks",
			Field:  "total_chunks",
			Reason: fmt.Sprintf("declared %d, chunks array has %d", snap.TotalChunks, len(snap.Chunks)),
		}
	}

	// Cross-count: total_errors is the number of recorded error-message
	// occurrences, one per call site, and must equal the sum over chunks.
	occurrences := 0
	for _, c := range snap.Chunks {
		occurrences += len(c.ErrorMessages)
	}
	if snap.TotalErrors != occurrences {
		return nil, &ValidationError{
			Check:  "total_errors",
			Field:  "total_errors",
			Reason: fmt.Sprintf("declared %d, chunks carry %d error message entries", snap.TotalErrors, occurrences),
		}
	}

	seen := make(map[string]string, len(snap.Chunks))
	deduped := snap.Chunks[:0]
	for i := range snap.Chunks {
		c := snap.Chunks[i]
		if c.ChunkID == "" {
			return nil, &ValidationError{
				Check:  "chunk_id",
				Field:  "chunk_id",
				Reason: fmt.Sprintf("chunk %d (%s:%d) has an empty chunk_id", i, c.FilePath, c.LineStart),
			}
		}
		fp := contentFingerprint(&c)
		if prev, ok := seen[c.ChunkID]; ok {
			if prev != fp {
				return nil, &ValidationError{
					Check:  "chunk_id",
					Field:  "chunk_id",
					Reason: fmt.Sprintf("chunk_id %q shared by chunks with different content", c.ChunkID),
				}
			}
			continue // identical duplicate, collapse
		}
		seen[c.ChunkID] = fp
		deduped = append(deduped, c)
	}
	if len(deduped) != len(snap.Chunks) {
		snap.Chunks = deduped
		snap.TotalChunks = len(deduped)
	}

	return &snap, nil
}

// checkShape verifies required keys and their container types without fully
// decoding the document, so the error can name the exact field.
func checkShape(top map[string]json.RawMessage) *ValidationError {
	required := []struct {
		key  string
		kind string
	}{
		{"schema_version", "string"},
		{"created_at", "string"},
		{"chunks", "array"},
		{"error_index", "object"},
		{"stats", "object"},
	}
	for _, r := range required {
		raw, ok := top[r.key]
		if !ok {
			return &ValidationError{Check: "required_keys", Field: r.key, Reason: "missing required field"}
		}
		if !jsonKindIs(raw, r.kind) {
			return &ValidationError{
				Check:  "required_keys",
				Field:  r.key,
				Reason: fmt.Sprintf("must be a JSON %s", r.kind),
			}
		}
	}

	var createdAt string
	if err := json.Unmarshal(top["created_at"], &createdAt); err == nil {
		if _, err := time.Parse(time.RFC3339, createdAt); err != nil {
			return &ValidationError{
				Check:  "required_keys",
				Field:  "created_at",
				Reason: fmt.Sprintf("not a timestamp: %q", createdAt),
			}
		}
	}
	return nil
}

func jsonKindIs(raw json.RawMessage, kind string) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		switch kind {
		case "string":
			return b == '"'
		case "array":
			return b == '['
		case "object":
			return b == '{'
		}
		return false
	}
	return false
}
