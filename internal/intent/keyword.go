package intent

import (
	"regexp"
	"strings"

	"github.com/akarpov/weatherchat/internal/conversation"
)

// DefaultWeatherKeywords is the fixed keyword set that marks a message as a
// weather question. Matching is case-insensitive substring.
var DefaultWeatherKeywords = []string{
	"погода", "weather", "дождь", "температура", "осадки", "солнечно", "облачно", "ветер",
}

// cityPattern captures a run of letters, hyphens and spaces after a
// preposition ("в"/"по"). Best effort; ambiguous phrasing is accepted.
var cityPattern = regexp.MustCompile(`(?:в|по)\s+([А-Яа-яA-Za-z\- ]+)`)

// KeywordClassifier is the rule tier: keyword matching for intent, a single
// regular expression for city extraction.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a classifier with the default keyword set.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{keywords: DefaultWeatherKeywords}
}

// NewKeywordClassifierWithKeywords creates a classifier with a custom set.
func NewKeywordClassifierWithKeywords(keywords []string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultWeatherKeywords
	}
	return &KeywordClassifier{keywords: keywords}
}

// IsWeatherIntent reports whether any weather keyword occurs in the text.
func (c *KeywordClassifier) IsWeatherIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractCity returns the trimmed capture after a preposition token.
func (c *KeywordClassifier) ExtractCity(text string) (string, bool) {
	match := cityPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	city := strings.TrimSpace(match[1])
	if city == "" {
		return "", false
	}
	return city, true
}

// LastMentionedCity walks user messages newest-first and returns the first
// extractable city.
func (c *KeywordClassifier) LastMentionedCity(history []conversation.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != conversation.RoleUser {
			continue
		}
		if city, ok := c.ExtractCity(history[i].Content); ok {
			return city, true
		}
	}
	return "", false
}
