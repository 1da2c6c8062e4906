package weather_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akarpov/weatherchat/internal/weather"
)

func TestClient_Current(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Москва" {
			t.Errorf("expected q=Москва, got %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("expected key=test-key, got %q", got)
		}
		if got := r.URL.Query().Get("lang"); got != "ru" {
			t.Errorf("expected lang=ru, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temp_c":-3.5,"feelslike_c":-8.0,"condition":{"text":"небольшой снег"}}}`))
	}))
	defer server.Close()

	c := weather.NewClientWithBaseURL("test-key", server.URL)
	conditions, err := c.Current(context.Background(), "Москва")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	if conditions.Description != "небольшой снег" {
		t.Errorf("unexpected description %q", conditions.Description)
	}
	if conditions.TempC != -3.5 {
		t.Errorf("unexpected temp %v", conditions.TempC)
	}
	if conditions.FeelsLikeC != -8.0 {
		t.Errorf("unexpected feels-like %v", conditions.FeelsLikeC)
	}
}

func TestClient_CurrentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
	}))
	defer server.Close()

	c := weather.NewClientWithBaseURL("test-key", server.URL)
	_, err := c.Current(context.Background(), "Нигде")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *weather.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != 1006 {
		t.Errorf("unexpected code %d", apiErr.Code)
	}
	if apiErr.Message != "No matching location found." {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestClient_CurrentMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := weather.NewClientWithBaseURL("test-key", server.URL)
	if _, err := c.Current(context.Background(), "Москва"); err == nil {
		t.Fatal("expected error for malformed response")
	}
}
