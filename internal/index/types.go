package index

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// SchemaVersion is the index document schema this build reads and writes.
const SchemaVersion = "1.0"

// supportedSchemaVersions lists every schema this build can load.
var supportedSchemaVersions = map[string]bool{
	"1.0": true,
}

// Source types for extracted error messages.
const (
	SourceLogging   = "logging"
	SourceException = "exception"
	SourcePrint     = "print"
)

// Log levels use the printer firmware's single-letter convention.
const (
	LevelError   = "E"
	LevelWarning = "W"
	LevelInfo    = "I"
)

// ErrorMessage is one error-emitting call site inside a chunk.
type ErrorMessage struct {
	Message    string `json:"message"`
	LogLevel   string `json:"log_level"`
	SourceType string `json:"source_type"`
}

// Chunk is one extracted function or method with its metadata.
// Field names match the index file format produced by the on-device
// extractor, so chunks round-trip through upload and download unchanged.
type Chunk struct {
	ChunkID        string         `json:"chunk_id"`
	FilePath       string         `json:"file_path"`
	FunctionName   string         `json:"function_name"`
	ClassName      string         `json:"class_name,omitempty"`
	LineStart      int            `json:"line_start"`
	LineEnd        int            `json:"line_end"`
	Signature      string         `json:"signature"`
	LeadingComment string         `json:"leading_comment,omitempty"`
	Docstring      string         `json:"docstring,omitempty"`
	Code           string         `json:"code"`
	ErrorMessages  []ErrorMessage `json:"error_messages"`
	LogLevels      []string       `json:"log_levels"`
}

// Entry is one inverted-index posting: a chunk that emits a message
// normalizing to the entry's key.
type Entry struct {
	ChunkID         string `json:"chunk_id"`
	OriginalMessage string `json:"original_message"`
	LogLevel        string `json:"log_level"`
	SourceType      string `json:"source_type"`
}

// Stats reports what one extraction run saw.
type Stats struct {
	FilesProcessed int     `json:"files_processed"`
	FilesFailed    int     `json:"files_failed"`
	FunctionsFound int     `json:"functions_found"`
	ErrorsFound    int     `json:"errors_found"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Snapshot is one immutable, fully serialized index: the chunk list plus the
// inverted error-message map. Snapshots are built once by the extractor and
// never mutated afterwards.
type Snapshot struct {
	SchemaVersion string             `json:"schema_version"`
	CreatedAt     string             `json:"created_at"`
	Chunks        []Chunk            `json:"chunks"`
	ErrorIndex    map[string][]Entry `json:"error_index"`
	Stats         Stats              `json:"stats"`
	TotalChunks   int                `json:"total_chunks"`
	TotalErrors   int                `json:"total_errors"`

	once      sync.Once
	byID      map[string]*Chunk
	sortedKey []string
}

// ChunkByID returns the chunk with the given id, or nil. The lookup map is
// built lazily on first use and shared by every caller of the same snapshot.
func (s *Snapshot) ChunkByID(id string) *Chunk {
	s.buildLookups()
	return s.byID[id]
}

// SortedKeys returns every error-index key in lexical order. Map iteration
// order in Go is randomized, so search uses this to stay deterministic.
func (s *Snapshot) SortedKeys() []string {
	s.buildLookups()
	return s.sortedKey
}

func (s *Snapshot) buildLookups() {
	s.once.Do(func() {
		s.byID = make(map[string]*Chunk, len(s.Chunks))
		for i := range s.Chunks {
			c := &s.Chunks[i]
			if _, ok := s.byID[c.ChunkID]; !ok {
				s.byID[c.ChunkID] = c
			}
		}
		s.sortedKey = make([]string, 0, len(s.ErrorIndex))
		for k := range s.ErrorIndex {
			s.sortedKey = append(s.sortedKey, k)
		}
		sort.Strings(s.sortedKey)
	})
}

// ChunkID computes the content-derived id of a chunk: the first 16 hex
// characters of a sha256 over the chunk's canonical field rendering.
// Re-extracting identical source yields byte-identical ids.
func ChunkID(c *Chunk) string {
	var b strings.Builder
	for _, field := range []string{
		c.FilePath,
		c.FunctionName,
		c.ClassName,
		strconv.Itoa(c.LineStart),
		strconv.Itoa(c.LineEnd),
		c.Signature,
		c.LeadingComment,
		c.Docstring,
		c.Code,
	} {
		b.WriteString(field)
		b.WriteByte(0)
	}
	for _, m := range c.ErrorMessages {
		b.WriteString(m.Message)
		b.WriteByte(0)
		b.WriteString(m.LogLevel)
		b.WriteByte(0)
		b.WriteString(m.SourceType)
		b.WriteByte(0)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// contentFingerprint hashes everything except the id itself; the validator
// uses it to tell identical duplicates apart from id collisions.
func contentFingerprint(c *Chunk) string {
	return ChunkID(c)
}
