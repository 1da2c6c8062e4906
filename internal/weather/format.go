package weather

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// emojiByDescription maps condition keywords to an emoji, first match wins.
var emojiByDescription = []struct {
	keywords []string
	emoji    string
}{
	{[]string{"ясно", "солнечно"}, "☀️"},
	{[]string{"облачно", "пасмурно"}, "☁️"},
	{[]string{"дожд", "ливень"}, "🌧️"},
	{[]string{"гроза"}, "⛈️"},
	{[]string{"снег", "метель"}, "❄️"},
	{[]string{"туман"}, "🌫️"},
	{[]string{"ветер"}, "💨"},
	{[]string{"мороз", "холод"}, "🥶"},
	{[]string{"тепло", "жарко"}, "🌡️"},
}

const fallbackEmoji = "🌈"

// Emoji picks an emoji for a condition description.
func Emoji(description string) string {
	desc := strings.ToLower(description)
	for _, entry := range emojiByDescription {
		for _, kw := range entry.keywords {
			if strings.Contains(desc, kw) {
				return entry.emoji
			}
		}
	}
	return fallbackEmoji
}

// Format renders conditions as a single user-facing line:
// "☀️ Ясно, 21°C (ощущается как 19°C)".
func Format(c Conditions) string {
	return fmt.Sprintf("%s %s, %g°C (ощущается как %g°C)",
		Emoji(c.Description), capitalize(c.Description), c.TempC, c.FeelsLikeC)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
