package extract

import (
	"bytes"
	"errors"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logdex/internal/index"
	"logdex/internal/walker"
)

// Skip records a file the extractor gave up on and why. A bad file never
// aborts the run.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the output of one extraction run, before index assembly.
type Result struct {
	Chunks []index.Chunk
	Skips  []Skip
	Stats  index.Stats
}

// ProgressFunc receives a notification after each file is handled. The walk
// streams, so the total is not known ahead of time.
type ProgressFunc func(processed int, path string)

// Options configures an extraction run.
type Options struct {
	Rules      walker.Rules
	Workers    int
	OnProgress ProgressFunc
}

type fileOutcome struct {
	chunks []index.Chunk
	skip   *Skip
}

// Run walks the source tree at root and extracts function-level chunks from
// every eligible file. Files that cannot be decoded or parsed are recorded in
// the skip list and the run continues. The returned chunk set is
// deterministic: identical input bytes yield identical chunk ids and
// identical ordering (file_path, then line_start), regardless of worker
// scheduling.
func Run(root string, opts Options) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	fileCh, walkErrCh := walker.Walk(root, opts.Rules)

	outCh := make(chan fileOutcome, workers)
	var processed atomic.Int64
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fx := newFileExtractor()
			for fi := range fileCh {
				outCh <- extractOne(fx, fi)
				if opts.OnProgress != nil {
					opts.OnProgress(int(processed.Add(1)), fi.RelPath)
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outCh)
	}()

	res := &Result{}
	for out := range outCh {
		if out.skip != nil {
			res.Skips = append(res.Skips, *out.skip)
			res.Stats.FilesFailed++
			continue
		}
		res.Chunks = append(res.Chunks, out.chunks...)
		res.Stats.FilesProcessed++
	}

	if err := <-walkErrCh; err != nil {
		return nil, err
	}

	sort.SliceStable(res.Chunks, func(i, j int) bool {
		if res.Chunks[i].FilePath != res.Chunks[j].FilePath {
			return res.Chunks[i].FilePath < res.Chunks[j].FilePath
		}
		return res.Chunks[i].LineStart < res.Chunks[j].LineStart
	})
	sort.Slice(res.Skips, func(i, j int) bool { return res.Skips[i].Path < res.Skips[j].Path })

	for _, c := range res.Chunks {
		res.Stats.ErrorsFound += len(c.ErrorMessages)
	}
	res.Stats.FunctionsFound = len(res.Chunks)
	res.Stats.ElapsedSeconds = time.Since(start).Seconds()

	return res, nil
}

func extractOne(fx *fileExtractor, fi walker.FileInfo) fileOutcome {
	src, err := os.ReadFile(fi.Path)
	if err != nil {
		return fileOutcome{skip: &Skip{Path: fi.RelPath, Reason: "unreadable: " + err.Error()}}
	}

	if bytes.IndexByte(src, 0) >= 0 {
		return fileOutcome{skip: &Skip{Path: fi.RelPath, Reason: "not decodable as text"}}
	}
	// Lossy-decode anything that isn't clean UTF-8, like the on-device
	// extractor does; only outright binary is skipped.
	src = []byte(strings.ToValidUTF8(string(src), "�"))

	chunks, err := fx.ExtractFile(fi.RelPath, src)
	if err != nil {
		reason := "parse failed: " + err.Error()
		if errors.Is(err, ErrSyntax) {
			reason = "syntax"
		}
		return fileOutcome{skip: &Skip{Path: fi.RelPath, Reason: reason}}
	}
	return fileOutcome{chunks: chunks}
}
