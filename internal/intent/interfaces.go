// Package intent provides pattern-based intent detection for user messages.
package intent

import "github.com/akarpov/weatherchat/internal/conversation"

// Classifier detects weather-related intent and extracts city candidates.
// The contract is deliberately small so a model-backed implementation can
// replace the pattern tier without touching the dialogue state machine.
type Classifier interface {
	// IsWeatherIntent reports whether the text looks like a weather question.
	IsWeatherIntent(text string) bool

	// ExtractCity returns a best-effort city candidate from the text.
	ExtractCity(text string) (string, bool)

	// LastMentionedCity scans the history from most recent to oldest and
	// returns the first city found in a user message.
	LastMentionedCity(history []conversation.Message) (string, bool)
}
