package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's hard cap per sendMessage call. Longer
// replies are chunked into sequential sends.
const MaxMessageLength = 4096

// IncomingMessage is an inbound event normalized for the pipeline. Exactly
// one of Text or Photo is meaningful.
type IncomingMessage struct {
	UserID      string
	ChatID      int64
	DisplayName string
	Text        string
	Caption     string
	Photo       []byte
}

// HasPhoto reports whether this is a photo event.
func (m IncomingMessage) HasPhoto() bool {
	return len(m.Photo) > 0
}

// Messenger abstracts the messaging transport for the pipeline.
type Messenger interface {
	// Reply sends text to a chat, chunking when it exceeds the message cap.
	Reply(ctx context.Context, chatID int64, text string) error

	// ReplyWithKeyboard sends text along with the main reply keyboard.
	ReplyWithKeyboard(ctx context.Context, chatID int64, text string) error

	// NotifyAdmin sends a best-effort message to the admin chat.
	NotifyAdmin(ctx context.Context, text string) error

	// Subscribe starts long polling and returns a channel of incoming
	// messages. The channel closes when ctx is canceled.
	Subscribe(ctx context.Context) (<-chan IncomingMessage, error)
}

// BotMessenger implements Messenger over the Bot API client.
type BotMessenger struct {
	client      *Client
	adminChatID int64
	pollTimeout time.Duration
	logger      *slog.Logger
}

// NewMessenger creates a messenger. adminChatID may be zero to disable
// admin notifications.
func NewMessenger(client *Client, adminChatID int64) *BotMessenger {
	return NewMessengerWithPollTimeout(client, adminChatID, 30*time.Second)
}

// NewMessengerWithPollTimeout creates a messenger with a custom long-poll
// timeout.
func NewMessengerWithPollTimeout(client *Client, adminChatID int64, pollTimeout time.Duration) *BotMessenger {
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}
	return &BotMessenger{
		client:      client,
		adminChatID: adminChatID,
		pollTimeout: pollTimeout,
		logger:      slog.Default().With(slog.String("component", "telegram.messenger")),
	}
}

// Reply sends text, splitting into MaxMessageLength chunks. A chunk
// boundary never splits a UTF-8 rune.
func (m *BotMessenger) Reply(ctx context.Context, chatID int64, text string) error {
	if len(text) <= MaxMessageLength {
		return m.client.SendMessage(ctx, chatID, text, nil)
	}
	for len(text) > 0 {
		chunk := text
		if len(chunk) > MaxMessageLength {
			cut := MaxMessageLength
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = MaxMessageLength
			}
			chunk = text[:cut]
		}
		if err := m.client.SendMessage(ctx, chatID, chunk, nil); err != nil {
			return err
		}
		text = text[len(chunk):]
	}
	return nil
}

// ReplyWithKeyboard sends text with the main reply keyboard attached.
func (m *BotMessenger) ReplyWithKeyboard(ctx context.Context, chatID int64, text string) error {
	return m.client.SendMessage(ctx, chatID, text, MainKeyboard())
}

// NotifyAdmin sends to the admin chat. A zero admin chat ID is a no-op.
func (m *BotMessenger) NotifyAdmin(ctx context.Context, text string) error {
	if m.adminChatID == 0 {
		return nil
	}
	return m.client.SendMessage(ctx, m.adminChatID, text, nil)
}

// Subscribe long-polls getUpdates and forwards normalized messages.
// Malformed updates (no message, no sender) are silently skipped. Photo
// messages are resolved to bytes before forwarding so handlers never talk
// to the Bot API themselves.
func (m *BotMessenger) Subscribe(ctx context.Context) (<-chan IncomingMessage, error) {
	if _, err := m.client.GetMe(ctx); err != nil {
		return nil, fmt.Errorf("telegram connectivity check failed: %w", err)
	}

	out := make(chan IncomingMessage)
	go m.pollLoop(ctx, out)
	return out, nil
}

func (m *BotMessenger) pollLoop(ctx context.Context, out chan<- IncomingMessage) {
	defer close(out)

	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		updates, next, err := m.client.GetUpdates(ctx, offset, m.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.ErrorContext(ctx, "getUpdates failed",
				slog.Any("error", err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}
		offset = next

		for _, update := range updates {
			msg, ok := m.normalize(ctx, update)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}
}

// normalize converts an update to an IncomingMessage, downloading photo
// bytes when needed. Returns false for updates the bot ignores.
func (m *BotMessenger) normalize(ctx context.Context, update Update) (IncomingMessage, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return IncomingMessage{}, false
	}
	if msg.Text == "" && len(msg.Photo) == 0 {
		return IncomingMessage{}, false
	}

	incoming := IncomingMessage{
		UserID:      strconv.FormatInt(msg.From.ID, 10),
		ChatID:      msg.Chat.ID,
		DisplayName: msg.From.DisplayName(),
		Text:        msg.Text,
		Caption:     msg.Caption,
	}

	if len(msg.Photo) > 0 {
		photo, err := m.downloadLargestPhoto(ctx, msg.Photo)
		if err != nil {
			m.logger.ErrorContext(ctx, "Photo download failed",
				slog.String("user_id", incoming.UserID),
				slog.Any("error", err),
			)
			return IncomingMessage{}, false
		}
		incoming.Photo = photo
	}

	return incoming, true
}

func (m *BotMessenger) downloadLargestPhoto(ctx context.Context, sizes []PhotoSize) ([]byte, error) {
	// Telegram orders photo sizes smallest first.
	fileID := sizes[len(sizes)-1].FileID
	file, err := m.client.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return m.client.DownloadFile(ctx, file.FilePath)
}
