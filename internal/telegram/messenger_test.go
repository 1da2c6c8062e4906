package telegram_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/akarpov/weatherchat/internal/telegram"
)

func TestMessenger_ReplyShortMessage(t *testing.T) {
	rec := &apiRecorder{}
	m := telegram.NewMessenger(newTestClient(t, rec), 0)

	if err := m.Reply(context.Background(), 42, "короткий ответ"); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if got := len(rec.sentMessages()); got != 1 {
		t.Errorf("expected 1 send, got %d", got)
	}
}

func TestMessenger_ReplyChunksLongMessage(t *testing.T) {
	rec := &apiRecorder{}
	m := telegram.NewMessenger(newTestClient(t, rec), 0)

	long := strings.Repeat("a", telegram.MaxMessageLength*2+100)
	if err := m.Reply(context.Background(), 42, long); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	sent := rec.sentMessages()
	if len(sent) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(sent))
	}
	var total int
	for i, msg := range sent {
		text, _ := msg["text"].(string)
		if len(text) > telegram.MaxMessageLength {
			t.Errorf("chunk %d exceeds cap: %d", i, len(text))
		}
		total += len(text)
	}
	if total != len(long) {
		t.Errorf("expected all %d bytes sent, got %d", len(long), total)
	}
}

func TestMessenger_ReplyChunksNeverSplitRunes(t *testing.T) {
	rec := &apiRecorder{}
	m := telegram.NewMessenger(newTestClient(t, rec), 0)

	// The leading ASCII byte misaligns the fixed cap with the two-byte
	// Cyrillic runes that follow.
	long := "a" + strings.Repeat("п", telegram.MaxMessageLength)
	if err := m.Reply(context.Background(), 42, long); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	var rebuilt strings.Builder
	for i, msg := range rec.sentMessages() {
		text, _ := msg["text"].(string)
		if len(text) > telegram.MaxMessageLength {
			t.Errorf("chunk %d exceeds cap: %d", i, len(text))
		}
		if !utf8.ValidString(text) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		rebuilt.WriteString(text)
	}
	if rebuilt.String() != long {
		t.Error("concatenated chunks differ from original text")
	}
	if strings.ContainsRune(rebuilt.String(), '�') {
		t.Error("delivered text contains replacement characters")
	}
}

func TestMessenger_NotifyAdminDisabled(t *testing.T) {
	rec := &apiRecorder{}
	m := telegram.NewMessenger(newTestClient(t, rec), 0)

	if err := m.NotifyAdmin(context.Background(), "новый пользователь"); err != nil {
		t.Fatalf("NotifyAdmin failed: %v", err)
	}
	if got := len(rec.sentMessages()); got != 0 {
		t.Errorf("expected no sends with zero admin chat, got %d", got)
	}
}

func TestMessenger_NotifyAdmin(t *testing.T) {
	rec := &apiRecorder{}
	m := telegram.NewMessenger(newTestClient(t, rec), 99)

	if err := m.NotifyAdmin(context.Background(), "новый пользователь"); err != nil {
		t.Fatalf("NotifyAdmin failed: %v", err)
	}

	sent := rec.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sent))
	}
	if got := sent[0]["chat_id"].(float64); got != 99 {
		t.Errorf("expected admin chat 99, got %v", got)
	}
}

func TestMessenger_SubscribeDeliversTextAndSkipsMalformed(t *testing.T) {
	rec := &apiRecorder{
		updates: []byte(`{"ok":true,"result":[
			{"update_id":1},
			{"update_id":2,"message":{"message_id":1,"chat":{"id":5,"type":"private"},"text":"нет отправителя"}},
			{"update_id":3,"message":{"message_id":2,"from":{"id":42,"first_name":"Анна"},"chat":{"id":42,"type":"private"},"text":"привет"}}
		]}`),
	}
	m := telegram.NewMessenger(newTestClient(t, rec), 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case msg := <-ch:
		if msg.UserID != "42" {
			t.Errorf("expected user 42, got %q", msg.UserID)
		}
		if msg.Text != "привет" {
			t.Errorf("expected text привет, got %q", msg.Text)
		}
		if msg.DisplayName != "Анна" {
			t.Errorf("expected display name Анна, got %q", msg.DisplayName)
		}
		if msg.HasPhoto() {
			t.Error("expected text message, not photo")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}

	cancel()
	select {
	case _, open := <-ch:
		if open {
			t.Error("expected channel closed after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
