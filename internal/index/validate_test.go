package index

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc(t *testing.T) map[string]any {
	t.Helper()
	m := ErrorMessage{Message: "paper jam", LogLevel: LevelError, SourceType: SourceLogging}
	snap := Build([]Chunk{testChunk("fw/a.py", "f_a", 1, m)}, Stats{FilesProcessed: 1})
	raw, err := Marshal(snap)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func mustValidate(t *testing.T, doc map[string]any) (*Snapshot, error) {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return Validate(raw)
}

func assertCheckFailed(t *testing.T, err error, check, field string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, check, verr.Check)
	assert.Equal(t, field, verr.Field)
}

func TestValidateAcceptsBuiltSnapshot(t *testing.T) {
	snap, err := mustValidate(t, validDoc(t))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalChunks)
}

func TestValidateRejectsNonJSON(t *testing.T) {
	_, err := Validate([]byte("not json"))
	assertCheckFailed(t, err, "parse", "")
}

func TestValidateRejectsMissingKey(t *testing.T) {
	doc := validDoc(t)
	delete(doc, "error_index")
	_, err := mustValidate(t, doc)
	assertCheckFailed(t, err, "required_keys", "error_index")
}

func TestValidateRejectsWrongContainerType(t *testing.T) {
	doc := validDoc(t)
	doc["chunks"] = "not an array"
	_, err := mustValidate(t, doc)
	assertCheckFailed(t, err, "required_keys", "chunks")
}

func TestValidateRejectsBadCreatedAt(t *testing.T) {
	doc := validDoc(t)
	doc["created_at"] = "yesterday"
	_, err := mustValidate(t, doc)
	assertCheckFailed(t, err, "required_keys", "created_at")
}

func TestValidateRejectsUnknownSchema(t *testing.T) {
	doc := validDoc(t)
	doc["schema_version"] = "2.0"
	_, err := mustValidate(t, doc)
	assertCheckFailed(t, err, "schema_version", "schema_version")
}

func TestValidateRejectsChunkCountMismatch(t *testing.T) {
	doc := validDoc(t)
	doc["total_chunks"] = 7
	_, err := mustValidate(t, doc)
	assertCheckFailed(t, err, "total_chunks", "total_chunks")
}

func TestValidateRejectsErrorCountMismatch(t *testing.T) {
	doc := validDoc(t)
	doc["total_errors"] = 99
	_, err := mustValidate(t, doc)
	assertCheckFailed(t, err, "total_errors", "total_errors")
}

func TestValidateRejectsEmptyChunkID(t *testing.T) {
	m := ErrorMessage{Message: "x", LogLevel: LevelError, SourceType: SourceLogging}
	snap := Build([]Chunk{testChunk("fw/a.py", "f_a", 1, m)}, Stats{})
	snap.Chunks[0].ChunkID = ""
	raw, err := Marshal(snap)
	require.NoError(t, err)

	_, err = Validate(raw)
	assertCheckFailed(t, err, "chunk_id", "chunk_id")
}

func TestValidateCollapsesIdenticalDuplicates(t *testing.T) {
	c := testChunk("fw/a.py", "f_a", 1)
	snap := Build([]Chunk{c, c}, Stats{})
	raw, err := Marshal(snap)
	require.NoError(t, err)

	got, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalChunks)
	assert.Len(t, got.Chunks, 1)
}

func TestValidateRejectsConflictingDuplicateIDs(t *testing.T) {
	a := testChunk("fw/a.py", "f_a", 1)
	b := testChunk("fw/a.py", "f_b", 20)
	b.ChunkID = a.ChunkID
	snap := Build([]Chunk{a, b}, Stats{})
	raw, err := Marshal(snap)
	require.NoError(t, err)

	_, err = Validate(raw)
	assertCheckFailed(t, err, "chunk_id", "chunk_id")
}
