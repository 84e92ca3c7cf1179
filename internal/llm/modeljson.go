package llm

import (
	"encoding/json"
	"strings"
)

// ParseObject decodes a JSON object from raw model output into dst.
// Models frequently wrap their JSON in markdown code fences or surround it
// with prose, so this strips fence lines first and, failing a direct decode,
// falls back to the first balanced {...} object found in the text.
// Returns false when no object could be decoded; dst is left untouched in
// that case so callers can rely on pre-filled fallback values.
func ParseObject(raw string, dst any) bool {
	text := stripFences(strings.TrimSpace(raw))

	if tryDecode(text, dst) {
		return true
	}

	if obj, ok := firstBalancedObject(text); ok {
		return tryDecode(obj, dst)
	}
	return false
}

func tryDecode(text string, dst any) bool {
	if text == "" {
		return false
	}
	return json.Unmarshal([]byte(text), dst) == nil
}

// stripFences removes markdown code-fence lines (``` or ```json) while
// keeping everything between them.
func stripFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// firstBalancedObject scans for the first '{' and returns the substring up to
// its matching '}'. Braces inside JSON strings are ignored.
func firstBalancedObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
