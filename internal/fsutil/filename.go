package fsutil

import "strings"

const maxFilenameLen = 128

// SafeFilename turns an arbitrary label into a file name component. Runs
// of characters other than ASCII letters, digits, dot, underscore and dash
// collapse to one underscore; leading and trailing dots and underscores
// are trimmed. An empty result becomes "unnamed".
func SafeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unnamed"
	}
	return out
}
