package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"logdex/internal/index"
)

// ErrSyntax marks a file whose parse tree contains errors. The on-device
// extractor skipped files its parser rejected; this build does the same so
// both sides index the same set of functions.
var ErrSyntax = errors.New("source contains syntax errors")

const (
	// leadingCommentWindow bounds how far above a definition the comment
	// block scan looks.
	leadingCommentWindow = 30
	// leadingCommentMaxGap is the largest run of blank lines allowed inside
	// a leading comment block.
	leadingCommentMaxGap = 1
)

// fileExtractor parses one source file at a time. Not safe for concurrent
// use; the run loop gives each worker its own.
type fileExtractor struct {
	parser *sitter.Parser
}

func newFileExtractor() *fileExtractor {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &fileExtractor{parser: p}
}

// ExtractFile splits one source file into function-level chunks. Chunks come
// back ordered by line_start. Returns ErrSyntax when the parse tree has
// errors anywhere in it.
func (e *fileExtractor) ExtractFile(relPath string, src []byte) ([]index.Chunk, error) {
	tree, err := e.parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	lines := strings.Split(string(src), "\n")

	var chunks []index.Chunk
	collectDefs(root, src, relPath, lines, "", &chunks)

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].LineStart < chunks[j].LineStart
	})
	return chunks, nil
}

// collectDefs walks the tree gathering every function_definition at any
// nesting depth. The nearest enclosing class supplies className; functions
// nested in functions keep the enclosing class, not the enclosing function.
func collectDefs(node *sitter.Node, src []byte, relPath string, lines []string, className string, out *[]index.Chunk) {
	switch node.Type() {
	case "class_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			className = name.Content(src)
		}
	case "function_definition":
		*out = append(*out, buildChunk(node, src, relPath, lines, className))
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectDefs(node.NamedChild(i), src, relPath, lines, className, out)
	}
}

func buildChunk(fn *sitter.Node, src []byte, relPath string, lines []string, className string) index.Chunk {
	startLine := int(fn.StartPoint().Row) + 1
	endLine := int(fn.EndPoint().Row) + 1

	c := index.Chunk{
		FilePath:       relPath,
		FunctionName:   nodeFieldContent(fn, "name", src),
		ClassName:      className,
		LineStart:      startLine,
		LineEnd:        endLine,
		Signature:      signature(fn, lines),
		LeadingComment: leadingComment(lines, startLine-1),
		Docstring:      docstring(fn, src),
		Code:           sliceLines(lines, startLine, endLine),
	}

	msgs, levels := collectMessages(fn.ChildByFieldName("body"), src)
	c.ErrorMessages = msgs
	c.LogLevels = levels
	c.ChunkID = index.ChunkID(&c)
	return c
}

// signature renders the def header as a single line, joining every source
// line from "def" until the parameter list's parentheses balance, then
// collapsing runs of whitespace.
func signature(fn *sitter.Node, lines []string) string {
	startRow := int(fn.StartPoint().Row)
	endRow := startRow
	if params := fn.ChildByFieldName("parameters"); params != nil {
		endRow = int(params.EndPoint().Row)
	}
	if endRow >= len(lines) {
		endRow = len(lines) - 1
	}
	joined := strings.Join(lines[startRow:endRow+1], " ")
	return strings.TrimSpace(collapseWhitespace(joined))
}

// docstring returns the first string expression of the body, unquoted, or "".
func docstring(fn *sitter.Node, src []byte) string {
	body := fn.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return stripQuotes(str.Content(src))
}

// leadingComment captures the contiguous comment or docstring block
// immediately above the definition line: hash comments and triple-quoted
// blocks, tolerating at most one blank line of separation, looking back at
// most leadingCommentWindow lines. defLineIdx is zero-based.
func leadingComment(lines []string, defLineIdx int) string {
	if defLineIdx <= 0 {
		return ""
	}

	var block []string
	blankGap := 0
	for k := defLineIdx - 1; k >= 0 && k > defLineIdx-1-leadingCommentWindow; k-- {
		line := lines[k]
		stripped := strings.TrimSpace(line)

		if stripped == "" {
			blankGap++
			if blankGap > leadingCommentMaxGap {
				break
			}
			continue
		}
		blankGap = 0

		switch {
		case strings.HasPrefix(stripped, `"""`) || strings.HasPrefix(stripped, "'''"):
			quote := stripped[:3]
			if strings.HasSuffix(stripped, quote) && len(stripped) > 6 {
				// One-line triple-quoted block.
				block = append([]string{line}, block...)
				continue
			}
			// Multi-line: collect upward until the opening quote.
			group := []string{line}
			j := k - 1
			for ; j >= 0 && j > k-leadingCommentWindow; j-- {
				group = append([]string{lines[j]}, group...)
				if strings.Contains(lines[j], quote) {
					break
				}
			}
			block = append(group, block...)
			k = j
		case strings.HasPrefix(stripped, "#"):
			block = append([]string{line}, block...)
		default:
			// Code line: the comment block ends here.
			k = -1
		}
		if k < 0 {
			break
		}
	}

	return strings.Join(block, "\n")
}

func sliceLines(lines []string, startLine, endLine int) string {
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}

func nodeFieldContent(n *sitter.Node, field string, src []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(src)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
