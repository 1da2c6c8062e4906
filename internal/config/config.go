// Package config loads bot configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the validated runtime configuration.
type Config struct {
	Telegram   TelegramConfig
	OpenRouter OpenRouterConfig
	Weather    WeatherConfig
	History    HistoryConfig
	Logging    LoggingConfig

	// SystemPrompt seeds every new conversation.
	SystemPrompt string
}

// TelegramConfig covers the transport.
type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
	PollTimeout time.Duration
}

// OpenRouterConfig covers the completion backends.
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Title       string
}

// WeatherConfig covers the weather provider.
type WeatherConfig struct {
	APIKey  string
	BaseURL string

	// Keywords overrides the built-in weather keyword set when non-empty.
	Keywords []string
}

// HistoryConfig covers the conversation store.
type HistoryConfig struct {
	File           string
	MaxMessages    int
	MaxFileSize    int64
	InactivityDays int
	SweepInterval  time.Duration
}

// LoggingConfig covers slog setup.
type LoggingConfig struct {
	Level  string
	Format string
}

// InactivityWindow converts the day count to a duration.
func (h HistoryConfig) InactivityWindow() time.Duration {
	return time.Duration(h.InactivityDays) * 24 * time.Hour
}

func setDefaults() {
	viper.SetDefault("telegram.poll_timeout", "30s")
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.vision_model", "google/gemini-2.0-flash-exp:free")
	viper.SetDefault("openrouter.title", "weatherchat")
	viper.SetDefault("weather.base_url", "http://api.weatherapi.com/v1")
	viper.SetDefault("history.file", "user_histories.json")
	viper.SetDefault("history.max_messages", 20)
	viper.SetDefault("history.max_file_size", 10*1024*1024)
	viper.SetDefault("history.inactivity_days", 30)
	viper.SetDefault("history.sweep_interval", "10m")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("system_prompt",
		"Ты Telegram ассистент. Всегда отвечай кратко и по делу. Преимущественно используй русский язык.")
}

func bindEnv() {
	viper.SetEnvPrefix("WEATHERCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Legacy environment names keep existing deployments working.
	_ = viper.BindEnv("telegram.bot_token", "WEATHERCHAT_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("openrouter.api_key", "WEATHERCHAT_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = viper.BindEnv("openrouter.model", "WEATHERCHAT_OPENROUTER_MODEL", "OPENROUTER_MODEL")
	_ = viper.BindEnv("weather.api_key", "WEATHERCHAT_WEATHERAPI_KEY", "WEATHERAPI_KEY")
}

// Load reads configuration from the optional file path plus environment and
// validates it.
func Load(configFile string) (*Config, error) {
	setDefaults()
	bindEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			BotToken:    viper.GetString("telegram.bot_token"),
			AdminChatID: viper.GetInt64("telegram.admin_chat_id"),
			PollTimeout: viper.GetDuration("telegram.poll_timeout"),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:      viper.GetString("openrouter.api_key"),
			BaseURL:     viper.GetString("openrouter.base_url"),
			Model:       viper.GetString("openrouter.model"),
			VisionModel: viper.GetString("openrouter.vision_model"),
			Title:       viper.GetString("openrouter.title"),
		},
		Weather: WeatherConfig{
			APIKey:   viper.GetString("weather.api_key"),
			BaseURL:  viper.GetString("weather.base_url"),
			Keywords: viper.GetStringSlice("weather.keywords"),
		},
		History: HistoryConfig{
			File:           viper.GetString("history.file"),
			MaxMessages:    viper.GetInt("history.max_messages"),
			MaxFileSize:    viper.GetInt64("history.max_file_size"),
			InactivityDays: viper.GetInt("history.inactivity_days"),
			SweepInterval:  viper.GetDuration("history.sweep_interval"),
		},
		Logging: LoggingConfig{
			Level:  viper.GetString("logging.level"),
			Format: viper.GetString("logging.format"),
		},
		SystemPrompt: viper.GetString("system_prompt"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("missing telegram.bot_token (set TELEGRAM_BOT_TOKEN)")
	}
	if c.OpenRouter.APIKey == "" {
		return fmt.Errorf("missing openrouter.api_key (set OPENROUTER_API_KEY)")
	}
	if c.OpenRouter.Model == "" {
		return fmt.Errorf("missing openrouter.model (set OPENROUTER_MODEL)")
	}
	if c.Weather.APIKey == "" {
		return fmt.Errorf("missing weather.api_key (set WEATHERAPI_KEY)")
	}
	return nil
}
