// Package bot wires history, intent routing, the weather dialogue, and the
// completion backend into the per-message handling pipeline.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/akarpov/weatherchat/internal/conversation"
	"github.com/akarpov/weatherchat/internal/intent"
	"github.com/akarpov/weatherchat/internal/llm"
	"github.com/akarpov/weatherchat/internal/telegram"
	"github.com/akarpov/weatherchat/internal/weather"
)

// DefaultSystemPrompt seeds every new conversation.
const DefaultSystemPrompt = "Ты Telegram ассистент. Всегда отвечай кратко и по делу. Преимущественно используй русский язык."

// User-facing texts.
const (
	greetingText      = "Привет! Я чат-бот. Чем могу помочь?"
	aboutText         = "Я чат-бот на базе ИИ: отвечаю на вопросы, описываю картинки и подсказываю погоду."
	resetConfirmText  = "Контекст сброшен!"
	quotaText         = "Лимит бесплатных запросов к ИИ исчерпан. Попробуйте позже."
	chatFailText      = "Sorry, I couldn't process your request."
	visionFailText    = "Не удалось распознать изображение."
	internalErrorText = "Произошла внутренняя ошибка. Попробуйте позже."

	defaultVisionPrompt = "Опиши, что изображено на картинке. Ответь на русском языке, кратко и понятно."
	russianMarker       = "на русском"
	russianSuffix       = " Ответь на русском языке."
)

// Pipeline handles one inbound event end to end. Per-user serialization is
// the dispatcher's job; the pipeline itself only assumes no two calls for
// the same user run concurrently.
type Pipeline struct {
	store        *conversation.Store
	dialogue     *weather.Dialogue
	classifier   intent.Classifier
	gateway      llm.Gateway
	messenger    telegram.Messenger
	systemPrompt string
	logger       *slog.Logger
	clock        func() time.Time
}

// Options configures a Pipeline.
type Options struct {
	Store      *conversation.Store
	Dialogue   *weather.Dialogue
	Classifier intent.Classifier
	Gateway    llm.Gateway
	Messenger  telegram.Messenger
	// SystemPrompt overrides DefaultSystemPrompt when set.
	SystemPrompt string
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options) *Pipeline {
	prompt := opts.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		store:        opts.Store,
		dialogue:     opts.Dialogue,
		classifier:   opts.Classifier,
		gateway:      opts.Gateway,
		messenger:    opts.Messenger,
		systemPrompt: prompt,
		logger:       slog.Default().With(slog.String("component", "bot.pipeline")),
		clock:        clock,
	}
}

// Process is the top-level guard around one event: any panic or stray error
// becomes a user-visible apology plus an admin notification, never a crash.
func (p *Pipeline) Process(ctx context.Context, msg telegram.IncomingMessage) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorContext(ctx, "Panic while handling event",
				slog.String("user_id", msg.UserID),
				slog.Any("panic", r),
			)
			p.reply(ctx, msg.ChatID, internalErrorText)
			p.notifyAdmin(ctx, fmt.Sprintf("❗️ Ошибка у пользователя %s:\n%v", msg.UserID, r))
		}
	}()

	if msg.HasPhoto() {
		p.handlePhoto(ctx, msg)
		return
	}
	p.handleText(ctx, msg)
}

// handleText runs the text path: commands, reset, weather dialogue, then
// general chat.
func (p *Pipeline) handleText(ctx context.Context, msg telegram.IncomingMessage) {
	text := msg.Text
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/start", "/help":
		if err := p.messenger.ReplyWithKeyboard(ctx, msg.ChatID, greetingText); err != nil {
			p.logger.ErrorContext(ctx, "Failed to send greeting",
				slog.String("user_id", msg.UserID),
				slog.Any("error", err),
			)
		}
		return

	case strings.ToLower(telegram.ButtonAbout):
		p.reply(ctx, msg.ChatID, aboutText)
		return

	case strings.ToLower(telegram.ButtonReset):
		p.store.Reset(msg.UserID, p.systemPrompt)
		p.persist(ctx, msg.UserID)
		p.reply(ctx, msg.ChatID, resetConfirmText)
		return
	}

	// Weather dialogue short-circuits general chat.
	if reply, handled := p.dialogue.Handle(ctx, msg.UserID, text, p.store.History(msg.UserID)); handled {
		p.persist(ctx, msg.UserID)
		p.reply(ctx, msg.ChatID, reply)
		return
	}

	if created := p.store.GetOrCreate(msg.UserID, p.systemPrompt); created {
		name := msg.DisplayName
		if name == "" {
			name = msg.UserID
		}
		p.notifyAdmin(ctx, fmt.Sprintf("👤 Новый пользователь: %s (id: %s)", name, msg.UserID))
	}

	p.store.Append(msg.UserID, conversation.Message{Role: conversation.RoleUser, Content: text})
	p.persist(ctx, msg.UserID)

	// Safety net: weather questions that slipped past the dialogue still
	// get today's date for the model.
	if p.classifier.IsWeatherIntent(text) {
		today := p.clock().Format("2006-01-02")
		p.store.Append(msg.UserID, conversation.Message{
			Role:    conversation.RoleSystem,
			Content: fmt.Sprintf("Сегодняшняя дата: %s. Используй эту дату для ответа на вопросы о погоде.", today),
		})
	}

	reply, err := p.gateway.Complete(ctx, p.store.History(msg.UserID))
	if err != nil {
		p.replyForBackendError(ctx, msg, err)
		return
	}

	p.store.Append(msg.UserID, conversation.Message{Role: conversation.RoleAssistant, Content: reply})
	p.persist(ctx, msg.UserID)
	p.reply(ctx, msg.ChatID, reply)
}

// handlePhoto runs the vision path. It is independent of the weather
// dialogue; captions join the history, replies are chunked by the messenger.
func (p *Pipeline) handlePhoto(ctx context.Context, msg telegram.IncomingMessage) {
	prompt := strings.TrimSpace(msg.Caption)
	if prompt == "" {
		prompt = defaultVisionPrompt
	} else if !strings.Contains(strings.ToLower(prompt), russianMarker) {
		prompt += russianSuffix
	}

	if msg.Caption != "" {
		p.store.Append(msg.UserID, conversation.Message{Role: conversation.RoleUser, Content: msg.Caption})
		p.persist(ctx, msg.UserID)
	}

	reply, err := p.gateway.DescribeImage(ctx, msg.Photo, prompt)
	if err != nil {
		p.logger.ErrorContext(ctx, "Vision backend failed",
			slog.String("user_id", msg.UserID),
			slog.Any("error", err),
		)
		reply = visionFailText
	}

	p.store.Append(msg.UserID, conversation.Message{Role: conversation.RoleAssistant, Content: reply})
	p.persist(ctx, msg.UserID)
	p.reply(ctx, msg.ChatID, reply)
}

// replyForBackendError maps a completion failure to the fixed user texts.
// No synthetic assistant message is appended in either case.
func (p *Pipeline) replyForBackendError(ctx context.Context, msg telegram.IncomingMessage, err error) {
	if llm.IsRateLimited(err) {
		p.reply(ctx, msg.ChatID, quotaText)
		return
	}

	var backendErr *llm.BackendError
	kind := llm.ErrorUnknown
	if errors.As(err, &backendErr) {
		kind = backendErr.Kind
	}
	p.logger.ErrorContext(ctx, "Completion backend failed",
		slog.String("user_id", msg.UserID),
		slog.String("kind", kind.String()),
		slog.Any("error", err),
	)
	p.reply(ctx, msg.ChatID, chatFailText)
}

// persist saves the store. Persist failures are logged, never fatal; the
// in-memory state stays authoritative until the next successful save.
func (p *Pipeline) persist(ctx context.Context, userID string) {
	if err := p.store.Save(); err != nil {
		p.logger.ErrorContext(ctx, "Failed to persist histories",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

func (p *Pipeline) reply(ctx context.Context, chatID int64, text string) {
	if err := p.messenger.Reply(ctx, chatID, text); err != nil {
		p.logger.ErrorContext(ctx, "Failed to send reply",
			slog.Int64("chat_id", chatID),
			slog.Any("error", err),
		)
	}
}

// notifyAdmin is best-effort: failures are logged and swallowed.
func (p *Pipeline) notifyAdmin(ctx context.Context, text string) {
	if err := p.messenger.NotifyAdmin(ctx, text); err != nil {
		p.logger.WarnContext(ctx, "Admin notification failed",
			slog.Any("error", err),
		)
	}
}
