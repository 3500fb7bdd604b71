package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logdex/internal/index"
)

func extractSource(t *testing.T, src string) []index.Chunk {
	t.Helper()
	chunks, err := newFileExtractor().ExtractFile("fw/test.py", []byte(src))
	require.NoError(t, err)
	return chunks
}

func TestExtractSimpleFunction(t *testing.T) {
	src := `def feed_paper(count):
    return count + 1
`
	chunks := extractSource(t, src)
	require.Len(t, chunks, 1)
	c := chunks[0]
	assert.Equal(t, "feed_paper", c.FunctionName)
	assert.Equal(t, "", c.ClassName)
	assert.Equal(t, 1, c.LineStart)
	assert.Equal(t, 2, c.LineEnd)
	assert.Equal(t, "def feed_paper(count):", c.Signature)
	assert.Equal(t, "def feed_paper(count):\n    return count + 1", c.Code)
	assert.NotEmpty(t, c.ChunkID)
	assert.Len(t, c.ChunkID, 16)
}

func TestExtractMethodCarriesClassName(t *testing.T) {
	src := `class PaperPath:
    def feed(self):
        pass

    def eject(self):
        def helper():
            pass
        return helper
`
	chunks := extractSource(t, src)
	require.Len(t, chunks, 3)
	assert.Equal(t, "feed", chunks[0].FunctionName)
	assert.Equal(t, "PaperPath", chunks[0].ClassName)
	assert.Equal(t, "eject", chunks[1].FunctionName)
	assert.Equal(t, "PaperPath", chunks[1].ClassName)
	// Nested function keeps the enclosing class.
	assert.Equal(t, "helper", chunks[2].FunctionName)
	assert.Equal(t, "PaperPath", chunks[2].ClassName)
}

func TestExtractMultilineSignature(t *testing.T) {
	src := `def configure(host,
              port,
              retries=3):
    pass
`
	chunks := extractSource(t, src)
	require.Len(t, chunks, 1)
	assert.Equal(t, "def configure(host, port, retries=3):", chunks[0].Signature)
	assert.Equal(t, 1, chunks[0].LineStart)
	assert.Equal(t, 4, chunks[0].LineEnd)
}

func TestExtractDocstring(t *testing.T) {
	src := `def feed(self):
    """Advance the paper one step."""
    pass
`
	chunks := extractSource(t, src)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Advance the paper one step.", chunks[0].Docstring)
}

func TestExtractLeadingComment(t *testing.T) {
	src := `import os

# Feed control entry point.
# Called from the motion ISR.
def feed():
    pass


def unrelated():
    pass
`
	chunks := extractSource(t, src)
	require.Len(t, chunks, 2)
	assert.Equal(t, "# Feed control entry point.\n# Called from the motion ISR.", chunks[0].LeadingComment)
	assert.Equal(t, "", chunks[1].LeadingComment)
}

func TestExtractSyntaxErrorRejected(t *testing.T) {
	_, err := newFileExtractor().ExtractFile("fw/bad.py", []byte("def broken(:\n    pass\n"))
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestExtractOrderedByLine(t *testing.T) {
	src := `def first():
    pass

def second():
    pass

class C:
    def third(self):
        pass
`
	chunks := extractSource(t, src)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{
		chunks[0].FunctionName, chunks[1].FunctionName, chunks[2].FunctionName,
	})
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].LineStart, chunks[i-1].LineStart)
	}
}

func TestExtractDeterministicIDs(t *testing.T) {
	src := `def feed():
    log.error("feed stalled")
`
	first := extractSource(t, src)
	second := extractSource(t, src)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ChunkID, second[0].ChunkID)
}
