// Package jsonutil provides best-effort extraction of a single JSON value
// out of noisy LLM completion text. Leading/trailing prose and fenced code
// blocks are common deviations from a clean JSON-only response, and every
// stage that parses LLM output needs the same tolerance.
package jsonutil

import "strings"

// ExtractObject returns the first balanced top-level {...} object found in
// text, with any ```json fences stripped first. It returns "", false if no
// balanced object is present. The returned string is not validated as JSON;
// callers still need to Unmarshal it.
func ExtractObject(text string) (string, bool) {
	return extractBalanced(text, '{', '}')
}

// ExtractArray returns the first balanced top-level [...] array found in
// text, with the same fence-stripping as ExtractObject.
func ExtractArray(text string) (string, bool) {
	return extractBalanced(text, '[', ']')
}

func extractBalanced(text string, open, close rune) (string, bool) {
	s := stripFences(text)

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			inString = true
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+len(string(close))], true
				}
			}
		}
	}

	return "", false
}

// stripFences removes markdown code fence markers so a fenced ```json
// block does not shift the balanced-brace scan.
func stripFences(text string) string {
	s := strings.ReplaceAll(text, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return s
}
