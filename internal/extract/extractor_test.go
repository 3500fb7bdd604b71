package extract

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logdex/internal/index"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunExtractsTree(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "fw/motion.py", `def stall_check():
    log.error("motor stalled")
`)
	writeSource(t, root, "fw/thermal.py", `def overheat():
    log.warning("head running hot")

def shutdown():
    raise RuntimeError("thermal shutdown")
`)

	res, err := Run(root, Options{Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.FilesProcessed)
	assert.Equal(t, 0, res.Stats.FilesFailed)
	assert.Equal(t, 3, res.Stats.FunctionsFound)
	assert.Equal(t, 3, res.Stats.ErrorsFound)
	assert.Empty(t, res.Skips)

	// Ordered by file path, then line.
	require.Len(t, res.Chunks, 3)
	assert.Equal(t, "stall_check", res.Chunks[0].FunctionName)
	assert.Equal(t, "overheat", res.Chunks[1].FunctionName)
	assert.Equal(t, "shutdown", res.Chunks[2].FunctionName)
}

func TestRunSkipsBadFilesAndContinues(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "good.py", "def ok():\n    pass\n")
	writeSource(t, root, "broken.py", "def broken(:\n    pass\n")
	writeSource(t, root, "binary.py", "def x():\x00\n    pass\n")

	res, err := Run(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.FilesProcessed)
	assert.Equal(t, 2, res.Stats.FilesFailed)
	require.Len(t, res.Skips, 2)
	assert.Equal(t, "binary.py", res.Skips[0].Path)
	assert.Equal(t, "not decodable as text", res.Skips[0].Reason)
	assert.Equal(t, "broken.py", res.Skips[1].Path)
	assert.Equal(t, "syntax", res.Skips[1].Reason)

	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "ok", res.Chunks[0].FunctionName)
}

func TestRunMissingRoot(t *testing.T) {
	_, err := Run(filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
}

func TestRunReportsProgress(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.py", "def a():\n    pass\n")
	writeSource(t, root, "b.py", "def b():\n    pass\n")

	var mu sync.Mutex
	var seen []string
	res, err := Run(root, Options{OnProgress: func(processed int, path string) {
		mu.Lock()
		seen = append(seen, path)
		mu.Unlock()
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.FilesProcessed)
	assert.ElementsMatch(t, []string{"a.py", "b.py"}, seen)
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "fw/a.py", "def a():\n    log.error(\"fault a\")\n")
	writeSource(t, root, "fw/b.py", "def b():\n    log.error(\"fault b\")\n")
	writeSource(t, root, "fw/c.py", "def c():\n    pass\n")

	first, err := Run(root, Options{Workers: 8})
	require.NoError(t, err)
	second, err := Run(root, Options{Workers: 1})
	require.NoError(t, err)

	require.Equal(t, len(first.Chunks), len(second.Chunks))
	for i := range first.Chunks {
		assert.Equal(t, first.Chunks[i].ChunkID, second.Chunks[i].ChunkID)
		assert.Equal(t, first.Chunks[i].FilePath, second.Chunks[i].FilePath)
	}

	snapA := index.Build(first.Chunks, first.Stats)
	snapB := index.Build(second.Chunks, second.Stats)
	assert.Equal(t, snapA.ErrorIndex, snapB.ErrorIndex)
}
