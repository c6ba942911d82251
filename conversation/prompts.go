package conversation

import (
	"strings"
	"unicode"
)

// Prompt is a caller facing line: Text is synthesized when possible, Media is
// the prerecorded fallback
type Prompt struct {
	Text  string
	Media string
}

// normalize lower-cases s and turns punctuation into spaces
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return " " + strings.Join(strings.Fields(s), " ") + " "
}

// matchesAny reports whether utterance contains one of the phrases as whole words
func matchesAny(utterance string, phrases []string) bool {
	u := normalize(utterance)
	for _, p := range phrases {
		p = strings.TrimSpace(normalize(p))
		if p == "" {
			continue
		}
		if strings.Contains(u, " "+p+" ") {
			return true
		}
	}
	return false
}
