package calibrate

import "strings"

// stopwords excluded from title keyword extraction.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "to": true, "of": true,
	"for": true, "in": true, "on": true, "with": true, "at": true, "by": true,
	"from": true, "up": true, "out": true, "new": true, "my": true, "is": true,
	"it": true, "this": true, "that": true, "do": true, "make": true,
}

const maxKeywords = 3

// ExtractKeywords returns up to three lowercase keywords from a task title,
// skipping stopwords and short tokens. Order follows the title, so the
// result is deterministic. This is a heuristic match signal, not a text
// similarity measure.
func ExtractKeywords(title string) []string {
	if title == "" {
		return nil
	}

	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	var keywords []string
	seen := make(map[string]bool)
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
