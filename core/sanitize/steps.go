package sanitize

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// stripFence removes a markdown code fence wrapping the whole text, with or
// without a language tag. A missing closing fence is tolerated. Text after
// the last closing fence means the fence does not wrap the whole text, so it
// is left in place for the boundary scan.
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return s, false
	}
	body := s[3:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = strings.TrimLeftFunc(body, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
		})
	}
	if j := strings.LastIndex(body, "```"); j >= 0 {
		if strings.TrimSpace(body[j+3:]) != "" {
			return s, false
		}
		body = body[:j]
	}
	return strings.TrimSpace(body), true
}

// fixUnicodeEscapes decodes literal \uXXXX sequences, including surrogate
// pairs. A sequence is kept as written when its backslash is itself escaped,
// when it is an unpaired surrogate, or when the decoded character would have
// to be escaped inside a JSON string.
func fixUnicodeEscapes(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	backslashes := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' {
			backslashes = 0
			b.WriteByte(c)
			i++
			continue
		}

		if backslashes%2 == 0 {
			if r, width, ok := decodeEscape(s[i:]); ok {
				b.WriteRune(r)
				i += width
				backslashes = 0
				continue
			}
		}
		backslashes++
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// decodeEscape decodes the escape at the start of s. It reports the number
// of bytes consumed.
func decodeEscape(s string) (rune, int, bool) {
	r, ok := hex4(s)
	if !ok {
		return 0, 0, false
	}
	width := 6
	if utf16.IsSurrogate(r) {
		low, ok := hex4(s[6:])
		if !ok {
			return 0, 0, false
		}
		r = utf16.DecodeRune(r, low)
		if r == unicode.ReplacementChar {
			return 0, 0, false
		}
		width = 12
	}
	if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
		return 0, 0, false
	}
	return r, width, true
}

// hex4 parses `\uXXXX` at the start of s.
func hex4(s string) (rune, bool) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, false
	}
	n, err := strconv.ParseUint(s[2:6], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

// extractPayload locates the JSON payload in s. Openers are tried left to
// right, skipping over any balanced candidate already examined:
//   - the first balanced candidate that is valid JSON wins;
//   - else the first balanced candidate seen before any unclosed opener;
//   - else everything from the first unclosed opener to the end, so a
//     truncated payload can still be repaired at decode time.
func extractPayload(s string) (string, bool) {
	firstBalanced := ""
	tail := -1

	for i := 0; i < len(s); {
		j := strings.IndexAny(s[i:], "{[")
		if j < 0 {
			break
		}
		start := i + j
		end, ok := matchClose(s, start)
		if !ok {
			if tail < 0 {
				tail = start
			}
			i = start + 1
			continue
		}

		candidate := s[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		if firstBalanced == "" && tail < 0 {
			firstBalanced = candidate
		}
		i = end + 1
	}

	if firstBalanced != "" {
		return firstBalanced, true
	}
	if tail >= 0 {
		return strings.TrimRightFunc(s[tail:], unicode.IsSpace), true
	}
	return "", false
}

// matchClose returns the index of the bracket closing the one at start.
// Brackets inside JSON strings are ignored. A mismatched closer or the end
// of input means the opener is unbalanced.
func matchClose(s string, start int) (int, bool) {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
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

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
