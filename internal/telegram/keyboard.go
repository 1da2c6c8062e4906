package telegram

// Button labels of the main reply keyboard. The reset label doubles as the
// pipeline's reset command (matched case-insensitively).
const (
	ButtonWeather = "Погода"
	ButtonAbout   = "О боте"
	ButtonReset   = "Сбросить контекст"
)

// MainKeyboard returns the persistent button layout shown on /start.
func MainKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: ButtonWeather}, {Text: ButtonAbout}},
			{{Text: ButtonReset}},
		},
		ResizeKeyboard: true,
	}
}

// DefaultCommands is the command menu registered at startup.
func DefaultCommands() []BotCommand {
	return []BotCommand{
		{Command: "start", Description: "Начать диалог"},
		{Command: "help", Description: "Что умеет бот"},
	}
}
