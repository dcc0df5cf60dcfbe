package calibrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"empty title", "", nil},
		{"lowercases", "Review QUARTERLY Report", []string{"review", "quarterly", "report"}},
		{"drops stopwords", "Write the summary for a meeting", []string{"write", "summary", "meeting"}},
		{"drops short tokens", "Go to QA db review", []string{"review"}},
		{"deduplicates", "deploy deploy deploy service", []string{"deploy", "service"}},
		{"caps at three", "alpha bravo charlie delta echo", []string{"alpha", "bravo", "charlie"}},
		{"splits punctuation", "fix-login/bug #142", []string{"fix", "login", "bug"}},
		{"all stopwords", "do it for the new one", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.title))
		})
	}
}

func TestExtractKeywords_Deterministic(t *testing.T) {
	title := "Refactor payment gateway retries"
	first := ExtractKeywords(title)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractKeywords(title))
	}
}
