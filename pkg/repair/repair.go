// Package repair extracts and fixes the JSON block that analysis responses
// embed in free text. Everything here is a pure text transform.
package repair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	jsonFence     = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	bareFence     = regexp.MustCompile("(?s)```\n(.*?)\n```")
	smartQuotes   = strings.NewReplacer("“", `"`, "”", `"`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	stringField   = regexp.MustCompile(`^(\s*"[\w\d_]+"\s*:\s*)"(.*)"(,?)$`)
)

// ParseError is returned when no JSON object can be recovered. Text is the
// original input, kept for diagnostics.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse JSON response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extract returns the first fenced code block, preferring a json-tagged
// fence over a bare one. Without a fence the text is returned unchanged.
func Extract(text string) string {
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareFence.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// Repair applies the text fixes in order: fence extraction, smart quote
// normalisation, trailing comma removal and the per-line quote sanitiser.
func Repair(text string) string {
	s := Extract(text)
	s = smartQuotes.Replace(s)
	s = trailingComma.ReplaceAllString(s, "$1")
	return sanitizeLines(s)
}

// sanitizeLines rewrites `"key": "value"` lines whose value holds embedded
// double quotes, escaped or not, so that every embedded quote becomes a
// single quote.
func sanitizeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		m := stringField.FindStringSubmatch(line)
		if m == nil || !strings.Contains(m[2], `"`) {
			continue
		}
		content := strings.ReplaceAll(m[2], `\"`, "'")
		content = strings.ReplaceAll(content, `"`, "'")
		lines[i] = m[1] + `"` + content + `"` + m[3]
	}
	return strings.Join(lines, "\n")
}

// Parse repairs text and decodes the JSON object it contains.
func Parse(text string) (map[string]any, error) {
	var out map[string]any
	if err := Unmarshal(text, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Unmarshal repairs text and decodes it into v. After a failed strict
// decode it retries on the prefix ending at the last '}', then once more
// with embedded quotes rewritten structurally. The returned error is always
// a *ParseError carrying the first decode failure.
func Unmarshal(text string, v any) error {
	s := Repair(text)

	firstErr := json.Unmarshal([]byte(s), v)
	if firstErr == nil {
		return nil
	}

	if i := strings.LastIndex(s, "}"); i != -1 {
		s = s[:i+1]
		if err := json.Unmarshal([]byte(s), v); err == nil {
			return nil
		}
	}

	if fixed := requoteStrings(s); fixed != s {
		if err := json.Unmarshal([]byte(fixed), v); err == nil {
			return nil
		}
	}

	return &ParseError{Text: text, Err: firstErr}
}

// requoteStrings walks the text and treats a double quote inside a string
// as a terminator only when the next non-space character can follow a JSON
// string. Any other embedded quote becomes a single quote.
func requoteStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '\\':
			b.WriteByte(c)
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			if closesString(s[i+1:]) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteByte('\'')
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func closesString(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ',', '}', ']', ':':
		return true
	}
	return false
}
