package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/akarpov/weatherchat/internal/conversation"
	"github.com/akarpov/weatherchat/internal/intent"
)

// State is the per-user position in the confirmation flow.
type State int

const (
	// StateAbsent means no weather flow is pending for the user.
	StateAbsent State = iota
	// StateAwaitingCity means the user was asked to name a city.
	StateAwaitingCity
	// StateAwaitingConfirmation means a candidate city awaits yes/no.
	StateAwaitingConfirmation
)

// String returns a readable state name for logs.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateAwaitingCity:
		return "awaiting_city"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// User-facing texts of the flow.
const (
	askCityPrompt  = "Пожалуйста, укажите город для прогноза погоды."
	lookupFailText = "Не удалось получить погоду."
)

func confirmPrompt(city string) string {
	return fmt.Sprintf("Погода в %s. Всё верно?", city)
}

// affirmative and negative token sets for the confirmation step.
var (
	affirmativeTokens = []string{"да", "верно", "да, верно", "yes", "correct"}
	negativeTokens    = []string{"нет", "no", "не верно", "неверно"}
)

// pendingRequest tracks one user's flow. Ephemeral; never persisted.
type pendingRequest struct {
	state State
	city  string
}

// Dialogue is the per-user city-confirmation state machine. Transitions for
// a single user must not run concurrently; the pipeline's per-user queue
// guarantees that, and the internal mutex only protects the shared map.
type Dialogue struct {
	classifier intent.Classifier
	provider   Provider
	logger     *slog.Logger

	pending map[string]*pendingRequest
	mu      sync.Mutex
}

// NewDialogue creates a dialogue backed by the given classifier and provider.
func NewDialogue(classifier intent.Classifier, provider Provider) *Dialogue {
	return &Dialogue{
		classifier: classifier,
		provider:   provider,
		logger:     slog.Default().With(slog.String("component", "weather.dialogue")),
		pending:    make(map[string]*pendingRequest),
	}
}

// StateOf returns the user's current state and the pending city, if any.
func (d *Dialogue) StateOf(userID string) (State, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, exists := d.pending[userID]
	if !exists {
		return StateAbsent, ""
	}
	return p.state, p.city
}

// Handle runs one step of the flow. It returns the reply to send and whether
// the message was consumed by the flow; on handled == false the pipeline
// proceeds to general chat.
//
// Unrecognized input during awaiting_confirmation is treated as a fresh
// top-level message, not as an implicit negative: the pending confirmation
// is cleared and the text is re-evaluated from the absent state.
func (d *Dialogue) Handle(ctx context.Context, userID, text string, history []conversation.Message) (string, bool) {
	d.mu.Lock()
	p := d.pending[userID]
	state := StateAbsent
	city := ""
	if p != nil {
		state = p.state
		city = p.city
	}
	d.mu.Unlock()

	switch state {
	case StateAwaitingCity:
		return d.confirmCity(userID, strings.TrimSpace(text)), true

	case StateAwaitingConfirmation:
		normalized := strings.ToLower(strings.TrimSpace(text))
		if matchesToken(normalized, affirmativeTokens) {
			d.clear(userID)
			return d.lookup(ctx, city), true
		}
		if matchesToken(normalized, negativeTokens) {
			d.setState(userID, StateAwaitingCity, "")
			return askCityPrompt, true
		}
		// Fallthrough: clear and re-evaluate as a top-level message.
		d.clear(userID)
		return d.handleAbsent(userID, text, history)

	default:
		return d.handleAbsent(userID, text, history)
	}
}

// handleAbsent covers the absent state: weather intent starts the flow,
// anything else is left to the pipeline.
func (d *Dialogue) handleAbsent(userID, text string, history []conversation.Message) (string, bool) {
	if !d.classifier.IsWeatherIntent(text) {
		return "", false
	}

	if city, ok := d.classifier.ExtractCity(text); ok {
		return d.confirmCity(userID, city), true
	}
	if city, ok := d.classifier.LastMentionedCity(history); ok {
		return d.confirmCity(userID, city), true
	}

	d.setState(userID, StateAwaitingCity, "")
	return askCityPrompt, true
}

// confirmCity proposes a candidate city and awaits yes/no.
func (d *Dialogue) confirmCity(userID, city string) string {
	d.setState(userID, StateAwaitingConfirmation, city)
	return confirmPrompt(city)
}

// lookup fetches and formats the weather for a confirmed city. Provider
// errors become user-visible text; the flow is already back to absent.
func (d *Dialogue) lookup(ctx context.Context, city string) string {
	conditions, err := d.provider.Current(ctx, city)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return fmt.Sprintf("Ошибка: %s", apiErr.Message)
		}
		d.logger.ErrorContext(ctx, "Weather lookup failed",
			slog.String("city", city),
			slog.Any("error", err),
		)
		return lookupFailText
	}
	return fmt.Sprintf("Погода в %s: %s", city, Format(conditions))
}

func (d *Dialogue) setState(userID string, state State, city string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[userID] = &pendingRequest{state: state, city: city}
}

func (d *Dialogue) clear(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, userID)
}

func matchesToken(normalized string, tokens []string) bool {
	for _, tok := range tokens {
		if normalized == tok {
			return true
		}
	}
	return false
}
