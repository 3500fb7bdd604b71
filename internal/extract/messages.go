package extract

import (
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"logdex/internal/index"
)

// Call-name heuristic: the log level of a call like x.error(...) is inferred
// from the method name alone. Receiver provenance is deliberately ignored;
// on the target firmware the logger object's type frequently cannot be
// determined, so any attribute call with one of these names counts.
var callLevels = map[string]string{
	"error":     index.LevelError,
	"critical":  index.LevelError,
	"exception": index.LevelError,
	"warning":   index.LevelWarning,
	"info":      index.LevelInfo,
	"debug":     index.LevelInfo,
}

var (
	// percentPlaceholderRE matches printf-style conversion specifiers,
	// including the %(name)s mapping form.
	percentPlaceholderRE = regexp.MustCompile(`%\(?[A-Za-z_][A-Za-z_0-9]*\)?[-+#0]*(?:\d+|\*)?(?:\.(?:\d+|\*))?[sdifeEgGxXorc]|%[-+#0]*(?:\d+|\*)?(?:\.(?:\d+|\*))?[sdifeEgGxXorc]`)
	// bracePlaceholderRE matches str.format and f-string interpolation fields.
	bracePlaceholderRE = regexp.MustCompile(`\{[^{}]*\}`)
)

// collapsePlaceholders rewrites interpolation placeholders to a single
// neutral marker so structurally identical templates key identically no
// matter what runtime values they carried.
func collapsePlaceholders(msg string) string {
	msg = percentPlaceholderRE.ReplaceAllString(msg, "*")
	return bracePlaceholderRE.ReplaceAllString(msg, "*")
}

// collectMessages scans a function body for error-emitting statements:
// logging calls, raise statements, and prints whose text looks like an
// error. It returns one entry per call site, in source order, plus the
// deduplicated sorted set of log levels present.
func collectMessages(body *sitter.Node, src []byte) ([]index.ErrorMessage, []string) {
	msgs := []index.ErrorMessage{}
	if body != nil {
		walkCalls(body, src, &msgs)
	}

	levelSet := make(map[string]bool, 3)
	for _, m := range msgs {
		levelSet[m.LogLevel] = true
	}
	levels := make([]string, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	return msgs, levels
}

func walkCalls(node *sitter.Node, src []byte, out *[]index.ErrorMessage) {
	switch node.Type() {
	case "call":
		classifyCall(node, src, out)
	case "raise_statement":
		classifyRaise(node, src, out)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkCalls(node.NamedChild(i), src, out)
	}
}

func classifyCall(call *sitter.Node, src []byte, out *[]index.ErrorMessage) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}

	switch fn.Type() {
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		if attr == nil {
			return
		}
		level, ok := callLevels[attr.Content(src)]
		if !ok {
			return
		}
		for _, msg := range callArgMessages(call, src) {
			*out = append(*out, index.ErrorMessage{
				Message:    msg,
				LogLevel:   level,
				SourceType: index.SourceLogging,
			})
		}
	case "identifier":
		if fn.Content(src) != "print" {
			return
		}
		for _, msg := range callArgMessages(call, src) {
			if !looksLikeError(msg) {
				continue
			}
			*out = append(*out, index.ErrorMessage{
				Message:    msg,
				LogLevel:   index.LevelError,
				SourceType: index.SourcePrint,
			})
		}
	}
}

// classifyRaise records string arguments of a raised exception constructor:
// raise ValueError("msg").
func classifyRaise(raise *sitter.Node, src []byte, out *[]index.ErrorMessage) {
	for i := 0; i < int(raise.NamedChildCount()); i++ {
		child := raise.NamedChild(i)
		if child.Type() != "call" {
			continue
		}
		for _, msg := range callArgMessages(child, src) {
			*out = append(*out, index.ErrorMessage{
				Message:    msg,
				LogLevel:   index.LevelError,
				SourceType: index.SourceException,
			})
		}
		// Raise carries at most one constructor call; inner calls in its
		// arguments are picked up by the regular walk.
		return
	}
}

// callArgMessages extracts string-literal message arguments from a call's
// argument list. A template formatted with `%` contributes its left-hand
// literal, matching how the firmware logs render.
func callArgMessages(call *sitter.Node, src []byte) []string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var msgs []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		var lit string
		switch arg.Type() {
		case "string", "concatenated_string":
			lit = literalString(arg, src)
		case "binary_operator":
			if op := arg.ChildByFieldName("operator"); op == nil || op.Content(src) != "%" {
				continue
			}
			left := arg.ChildByFieldName("left")
			if left == nil || (left.Type() != "string" && left.Type() != "concatenated_string") {
				continue
			}
			lit = literalString(left, src)
		default:
			continue
		}
		if lit == "" {
			continue
		}
		if msg := strings.TrimSpace(collapsePlaceholders(lit)); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func looksLikeError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "error") ||
		strings.Contains(lower, "fail") ||
		strings.Contains(lower, "exception")
}

// literalString returns the unquoted text of a string or concatenated_string
// node.
func literalString(node *sitter.Node, src []byte) string {
	if node.Type() == "concatenated_string" {
		var b strings.Builder
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "string" {
				b.WriteString(stripQuotes(child.Content(src)))
			}
		}
		return b.String()
	}
	return stripQuotes(node.Content(src))
}

// stripQuotes removes string prefixes (r, b, u, f in any case) and the
// surrounding single, double, or triple quotes from a string literal.
func stripQuotes(s string) string {
	s = strings.TrimLeft(s, "rbufRBUF")
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
