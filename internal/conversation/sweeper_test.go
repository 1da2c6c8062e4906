package conversation_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/akarpov/weatherchat/internal/conversation"
)

func TestSweeper_StartStop(t *testing.T) {
	s := conversation.NewStore(conversation.Options{})
	sw := conversation.NewSweeperWithInterval(s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !sw.IsRunning() {
		t.Error("expected sweeper to be running")
	}

	// Starting twice is a no-op.
	if err := sw.Start(ctx); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	sw.Stop()
	if sw.IsRunning() {
		t.Error("expected sweeper stopped")
	}

	// Stopping twice must not hang or panic.
	sw.Stop()
}

func TestSweeper_DefaultIntervalSweepsOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_histories.json")
	s := conversation.NewStore(conversation.Options{
		Persistence: conversation.NewFilePersistence(path),
	})
	s.GetOrCreate("user123", testPrompt)

	// The default interval is minutes long; the first sweep still runs
	// immediately on Start.
	sw := conversation.NewSweeper(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sw.Stop()

	deadline := time.After(time.Second)
	for {
		loaded, err := conversation.NewFilePersistence(path).Load()
		if err == nil {
			if _, exists := loaded["user123"]; exists {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("sweeper never persisted the store")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	s := conversation.NewStore(conversation.Options{})
	sw := conversation.NewSweeperWithInterval(s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := sw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	deadline := time.After(time.Second)
	for sw.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("sweeper did not stop after context cancel")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweeper_PersistsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_histories.json")
	s := conversation.NewStore(conversation.Options{
		Persistence: conversation.NewFilePersistence(path),
	})
	s.GetOrCreate("user123", testPrompt)

	sw := conversation.NewSweeperWithInterval(s, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sw.Stop()

	deadline := time.After(time.Second)
	for {
		loaded, err := conversation.NewFilePersistence(path).Load()
		if err == nil {
			if _, exists := loaded["user123"]; exists {
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("sweeper never persisted the store")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
