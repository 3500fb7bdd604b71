package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
}

// Rules controls which files a walk emits.
type Rules struct {
	// IncludeExts are file suffixes to process, with or without the dot.
	IncludeExts []string
	// ExcludeDirs are directory names (not paths) pruned from the walk.
	ExcludeDirs []string
	// MaxFileBytes caps the size of files emitted. Zero means DefaultMaxFileBytes.
	MaxFileBytes int64
}

// DefaultMaxFileBytes is the largest file considered (10 MB), matching the
// on-device extractor's guard.
const DefaultMaxFileBytes = 10 << 20

// DefaultExcludeDirs are pruned when no denylist is given.
var DefaultExcludeDirs = []string{
	"__pycache__", ".git", ".svn", ".hg",
	"node_modules", "dist", "build", "out", "target",
	"venv", ".venv", "env", ".env",
	".idea", ".vscode",
}

// DefaultIncludeExts is the default suffix filter.
var DefaultIncludeExts = []string{".py"}

// Walk traverses the tree rooted at root and sends eligible source files on
// the returned channel, in lexical directory order. Directories on the
// denylist are pruned by name; symlinks, oversized and empty files are
// skipped. The error channel carries at most one unrecoverable walk error.
func Walk(root string, rules Rules) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	exts := normalizeExts(rules.IncludeExts)
	exclude := make(map[string]bool)
	dirs := rules.ExcludeDirs
	if dirs == nil {
		dirs = DefaultExcludeDirs
	}
	for _, d := range dirs {
		exclude[d] = true
	}
	maxBytes := rules.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}
		if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
			errs <- fmt.Errorf("root path is not a directory: %s", absRoot)
			return
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries, keep walking
			}

			if d.IsDir() {
				if path != absRoot && exclude[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}

			if !exts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > maxBytes || info.Size() == 0 {
				return nil
			}

			relPath, _ := filepath.Rel(absRoot, path)
			files <- FileInfo{
				Path:    path,
				RelPath: filepath.ToSlash(relPath),
				Size:    info.Size(),
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

func normalizeExts(given []string) map[string]bool {
	if given == nil {
		given = DefaultIncludeExts
	}
	exts := make(map[string]bool, len(given))
	for _, e := range given {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return exts
}
