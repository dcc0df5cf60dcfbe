// Package style rewrites outgoing messages to match a user's learned
// communication preferences: length, emoji usage, and tone. Both the
// suggestion adapter and the notification digest run their text through
// the same adaptation.
package style

import (
	"strings"
	"unicode"

	"github.com/attunehq/attune/internal/model"
)

// modalVerbs mark sentences worth keeping when truncating to brief form.
var modalVerbs = []string{
	"should", "could", "must", "need", "will", "would", "can", "may", "might",
}

// casualSubstitutions soften formal phrasing for a casual tone preference.
// Longer phrases come first so they win over their prefixes.
var casualSubstitutions = [][2]string{
	{"It is recommended to", "It'd be good to"},
	{"You should consider", "Maybe try"},
	{"You should", "You might want to"},
	{"Do not", "Don't"},
	{"Consider", "How about"},
}

// emojiByTopic picks an emoji for frequent-emoji users, keyed by the first
// matching keyword in the message.
var emojiByTopic = []struct {
	keyword string
	emoji   string
}{
	{"break", "☕"},
	{"task", "✅"},
	{"schedule", "📅"},
	{"focus", "🎯"},
}

const defaultEmoji = "✨"

// Adapt rewrites message according to the user's communication style.
// An empty message passes through untouched.
func Adapt(message string, cs model.CommunicationStyle) string {
	if message == "" {
		return message
	}

	if cs.PreferredLength == "brief" {
		message = truncateToBrief(message)
	}

	switch cs.TonePreference {
	case "casual":
		message = casualize(message)
	}

	switch cs.EmojiUsage {
	case "none":
		message = stripEmoji(message)
	case "frequent":
		message = ensureEmoji(message)
	}

	return message
}

// truncateToBrief keeps the lead sentence plus any sentence carrying a
// number or a modal verb, dropping the filler in between.
func truncateToBrief(message string) string {
	sentences := splitSentences(message)
	if len(sentences) <= 1 {
		return message
	}

	kept := sentences[:1]
	for _, s := range sentences[1:] {
		if sentenceHasSignal(s) {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}

// sentenceHasSignal reports whether a sentence carries a number or modal
// verb, the two markers of actionable content.
func sentenceHasSignal(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	lower := strings.ToLower(s)
	for _, modal := range modalVerbs {
		if strings.Contains(lower, modal) {
			return true
		}
	}
	return false
}

// splitSentences breaks text on sentence terminators, keeping the
// terminator attached.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func casualize(message string) string {
	for _, sub := range casualSubstitutions {
		message = strings.ReplaceAll(message, sub[0], sub[1])
		// Also cover mid-sentence occurrences of the lowercase form.
		message = strings.ReplaceAll(message, strings.ToLower(sub[0]), strings.ToLower(sub[1]))
	}
	return message
}

func stripEmoji(message string) string {
	var b strings.Builder
	for _, r := range message {
		if unicode.Is(unicode.So, r) || r >= 0x1F300 && r <= 0x1FAFF {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func ensureEmoji(message string) string {
	for _, r := range message {
		if unicode.Is(unicode.So, r) || r >= 0x1F300 && r <= 0x1FAFF {
			return message
		}
	}

	lower := strings.ToLower(message)
	for _, e := range emojiByTopic {
		if strings.Contains(lower, e.keyword) {
			return message + " " + e.emoji
		}
	}
	return message + " " + defaultEmoji
}
