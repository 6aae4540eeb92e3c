// Package jsonutil recovers JSON values from LLM free text. Models wrap JSON
// in markdown fences, leave trailing commas, emit raw control characters and
// unescaped backslashes; Extract applies progressively more aggressive repair
// passes until one parses.
package jsonutil

import (
	"encoding/json"
	"strings"
)

// Extract locates a JSON value (object or array) inside text and repairs it.
// Repair passes compose: each pass transforms the previous pass's output.
// Returns false when nothing parseable can be recovered. A false result is
// data for the caller, not a fault.
func Extract(text string) (json.RawMessage, bool) {
	s, ok := isolate(text)
	if !ok {
		return nil, false
	}
	for _, pass := range []func(string) string{
		func(s string) string { return s },
		stripTrailingCommas,
		stripControlChars,
		escapeStrayBackslashes,
	} {
		s = pass(s)
		if valid(s) {
			return json.RawMessage(s), true
		}
	}
	return nil, false
}

// ExtractInto recovers a JSON value from text and unmarshals it into v.
func ExtractInto(text string, v any) bool {
	raw, ok := Extract(text)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func valid(s string) bool {
	var raw json.RawMessage
	return json.Unmarshal([]byte(s), &raw) == nil
}

// isolate slices the candidate JSON value out of surrounding prose: markdown
// fences are removed, then the span from the first opening brace or bracket
// to the last matching closer is kept.
func isolate(text string) (string, bool) {
	s := stripCodeBlock(text)
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// stripCodeBlock removes markdown code block wrappers from a string.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		lines := strings.SplitN(s, "\n", 2)
		if len(lines) > 1 {
			s = lines[1]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// stripTrailingCommas removes commas that immediately precede a closing
// bracket or brace. Commas inside string literals are left alone.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue // drop the comma
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// stripControlChars removes raw control characters except \n, \r and \t.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// escapeStrayBackslashes doubles backslashes that do not begin a valid JSON
// escape sequence, e.g. Windows paths emitted verbatim.
func escapeStrayBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && validEscape(s[i+1:]) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func validEscape(rest string) bool {
	switch rest[0] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return true
	case 'u':
		if len(rest) < 5 {
			return false
		}
		for i := 1; i <= 4; i++ {
			if !isHex(rest[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
