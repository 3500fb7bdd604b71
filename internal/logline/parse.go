// Package logline turns raw pasted printer log output into search keys.
// Lines look like:
//
//	2025-12-19T05:22:06.751222+11:00 RS20300529 Kareela0: <I> [#4] EngineConductor: Changing state ...
//
// Parsing is best effort: every field is optional and a line that matches
// nothing still yields a usable message.
package logline

import (
	"regexp"
	"strings"
)

var (
	tsRE     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\S+`)
	levelRE  = regexp.MustCompile(`<([^>])>`)
	threadRE = regexp.MustCompile(`\[([^\]]+)\]`)
	spaceRE  = regexp.MustCompile(`\s+`)

	tsPrefixRE   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\S+\s+`)
	hostPrefixRE = regexp.MustCompile(`^[A-Za-z0-9_.-]{4,}\s+[A-Za-z0-9_.-]+:\s+`)
	floatRE      = regexp.MustCompile(`\b\d+\.\d+\b`)
	longIntRE    = regexp.MustCompile(`\b\d{4,}\b`)
	tokenSplitRE = regexp.MustCompile(`[^a-z0-9]+`)
)

// Parsed holds the fields recovered from one log line. Empty string means
// the field was not present.
type Parsed struct {
	Timestamp    string `json:"timestamp,omitempty"`
	HostOrSerial string `json:"host_or_serial,omitempty"`
	Process      string `json:"process,omitempty"`
	Level        string `json:"level,omitempty"`
	Thread       string `json:"thread,omitempty"`
	Component    string `json:"component,omitempty"`
	Message      string `json:"message"`
}

// Keys are the lookup strings derived from a parsed line.
type Keys struct {
	KeyExact      string   `json:"key_exact"`
	KeyNormalized string   `json:"key_normalized"`
	Tokens        []string `json:"tokens"`
}

// Analysis is the end-to-end result for a pasted block of text.
type Analysis struct {
	SelectedLine string `json:"selected_line"`
	Parsed
	Keys
}

// SelectRelevantLine picks the line to analyze from a pasted block: the
// first line containing "<E>", otherwise the first non-empty line.
func SelectRelevantLine(text string) string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	for _, line := range lines {
		if strings.Contains(line, "<E>") {
			return line
		}
	}
	return lines[0]
}

// ParseLine best-effort parses a single printer-style log line.
func ParseLine(line string) Parsed {
	line = strings.TrimSpace(line)
	var p Parsed
	if line == "" {
		return p
	}

	tokens := strings.Fields(line)
	pos := 0

	// Leading ISO-like timestamp token.
	if pos < len(tokens) && tsRE.MatchString(tokens[pos]) && strings.Contains(tokens[pos], "T") {
		p.Timestamp = tokens[pos]
		pos++
	}

	// With a timestamp the next token is the host/serial, optionally
	// followed by "process:". Without one, look for "HOST PROCESS:" at
	// the start.
	if p.Timestamp != "" && pos < len(tokens) {
		p.HostOrSerial = tokens[pos]
		pos++
		if pos < len(tokens) && strings.HasSuffix(tokens[pos], ":") {
			p.Process = strings.TrimSuffix(tokens[pos], ":")
			pos++
		}
	} else if pos+1 < len(tokens) && strings.HasSuffix(tokens[pos+1], ":") {
		p.HostOrSerial = tokens[pos]
		p.Process = strings.TrimSuffix(tokens[pos+1], ":")
		pos += 2
	}

	remainder := strings.TrimSpace(strings.Join(tokens[pos:], " "))

	if m := levelRE.FindStringSubmatchIndex(remainder); m != nil {
		p.Level = remainder[m[2]:m[3]]
		remainder = strings.TrimSpace(remainder[:m[0]] + " " + remainder[m[1]:])
	}
	if m := threadRE.FindStringSubmatchIndex(remainder); m != nil {
		p.Thread = strings.TrimSpace(remainder[m[2]:m[3]])
		remainder = strings.TrimSpace(remainder[:m[0]] + " " + remainder[m[1]:])
	}

	remainder = strings.TrimSpace(spaceRE.ReplaceAllString(remainder, " "))

	if left, right, ok := strings.Cut(remainder, ":"); ok {
		p.Component = strings.TrimSpace(left)
		p.Message = strings.TrimSpace(right)
		if p.Message == "" {
			p.Message = remainder
		}
	} else {
		p.Message = remainder
		if p.Message == "" {
			p.Message = line
		}
	}
	return p
}

// BuildKeys derives exact and normalized lookup keys from a parsed line.
// With normalizeNumbers set, floats and long integers collapse to "<NUM>"
// so messages differing only in readings still match.
func BuildKeys(p Parsed, normalizeNumbers bool) Keys {
	var keyExact string
	if p.Component != "" && p.Message != "" {
		keyExact = p.Component + ": " + p.Message
	} else {
		keyExact = p.Message
	}

	keyNorm := keyExact

	// Strip markers that leaked into the message.
	keyNorm = tsPrefixRE.ReplaceAllString(keyNorm, "")
	keyNorm = levelRE.ReplaceAllString(keyNorm, " ")
	keyNorm = threadRE.ReplaceAllString(keyNorm, " ")
	keyNorm = hostPrefixRE.ReplaceAllString(keyNorm, "")

	if normalizeNumbers {
		keyNorm = floatRE.ReplaceAllString(keyNorm, "<NUM>")
		keyNorm = longIntRE.ReplaceAllString(keyNorm, "<NUM>")
	}

	keyNorm = strings.ToLower(strings.TrimSpace(spaceRE.ReplaceAllString(keyNorm, " ")))
	if keyNorm == "" {
		keyNorm = strings.ToLower(strings.TrimSpace(keyExact))
	}

	var tokens []string
	for _, t := range tokenSplitRE.Split(keyNorm, -1) {
		if len(t) >= 3 {
			tokens = append(tokens, t)
		}
	}

	return Keys{KeyExact: keyExact, KeyNormalized: keyNorm, Tokens: tokens}
}

// AnalyzePasted runs line selection, parsing, and key building over a pasted
// block of text.
func AnalyzePasted(text string, normalizeNumbers bool) Analysis {
	line := SelectRelevantLine(text)
	p := ParseLine(line)
	return Analysis{
		SelectedLine: line,
		Parsed:       p,
		Keys:         BuildKeys(p, normalizeNumbers),
	}
}
