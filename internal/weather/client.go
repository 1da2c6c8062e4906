// Package weather implements the city-confirmation dialogue and the
// current-conditions provider behind it.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the WeatherAPI endpoint.
const DefaultBaseURL = "http://api.weatherapi.com/v1"

// Conditions describes current weather for a city.
type Conditions struct {
	Description string
	TempC       float64
	FeelsLikeC  float64
}

// Provider looks up current conditions for a city.
type Provider interface {
	Current(ctx context.Context, city string) (Conditions, error)
}

// APIError is a structured provider error with a human-readable message.
type APIError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Client talks to WeatherAPI over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a WeatherAPI client.
func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint, for tests.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type currentResponse struct {
	Current *struct {
		TempC     float64 `json:"temp_c"`
		FeelsLike float64 `json:"feelslike_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Current fetches current conditions for the city, localized to Russian.
func (c *Client) Current(ctx context.Context, city string) (Conditions, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", city)
	q.Set("lang", "ru")

	reqURL := fmt.Sprintf("%s/current.json?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Conditions{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("weatherapi request failed: %w", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var out currentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Conditions{}, fmt.Errorf("weatherapi response malformed: %w", err)
	}

	if out.Error != nil {
		return Conditions{}, &APIError{Code: out.Error.Code, Message: out.Error.Message}
	}
	if out.Current == nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return Conditions{}, fmt.Errorf("weatherapi http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return Conditions{}, fmt.Errorf("weatherapi response missing current block")
	}

	return Conditions{
		Description: out.Current.Condition.Text,
		TempC:       out.Current.TempC,
		FeelsLikeC:  out.Current.FeelsLike,
	}, nil
}
