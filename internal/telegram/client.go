// Package telegram implements the Bot API transport: long polling for
// inbound events and message delivery with chunking.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Client is a thin Bot API client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Bot API client.
func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a custom endpoint, for tests.
func NewClientWithBaseURL(token, baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type getMeResponse struct {
	OK     bool `json:"ok"`
	Result User `json:"result"`
}

// GetMe fetches the bot's own account, used as a connectivity check.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	raw, err := c.get(ctx, fmt.Sprintf("%s/bot%s/getMe", c.baseURL, c.token))
	if err != nil {
		return nil, err
	}
	var out getMeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getMe: ok=false")
	}
	return &out.Result, nil
}

type getUpdatesResponse struct {
	OK     bool     `json:"ok"`
	Result []Update `json:"result"`
}

// GetUpdates long-polls for updates and returns them with the next offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	reqURL := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d", c.baseURL, c.token, secs)
	if offset > 0 {
		reqURL += fmt.Sprintf("&offset=%d", offset)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	raw, err := c.get(reqCtx, reqURL)
	if err != nil {
		return nil, offset, err
	}

	var out getUpdatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, offset, err
	}
	if !out.OK {
		return nil, offset, fmt.Errorf("telegram getUpdates: ok=false")
	}

	next := offset
	for _, u := range out.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return out.Result, next, nil
}

type sendMessageRequest struct {
	ChatID      int64                `json:"chat_id"`
	Text        string               `json:"text"`
	ReplyMarkup *ReplyKeyboardMarkup `json:"reply_markup,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// SendMessage sends plain text to a chat, optionally with a reply keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *ReplyKeyboardMarkup) error {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "(empty)"
	}

	body, _ := json.Marshal(sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
	raw, err := c.post(ctx, fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token), body)
	if err != nil {
		return err
	}

	var ok okResponse
	_ = json.Unmarshal(raw, &ok)
	if !ok.OK {
		return fmt.Errorf("telegram sendMessage: ok=false")
	}
	return nil
}

type setMyCommandsRequest struct {
	Commands []BotCommand `json:"commands"`
}

// SetMyCommands registers the command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	body, _ := json.Marshal(setMyCommandsRequest{Commands: commands})
	raw, err := c.post(ctx, fmt.Sprintf("%s/bot%s/setMyCommands", c.baseURL, c.token), body)
	if err != nil {
		return err
	}

	var ok okResponse
	_ = json.Unmarshal(raw, &ok)
	if !ok.OK {
		return fmt.Errorf("telegram setMyCommands: ok=false")
	}
	return nil
}

type getFileResponse struct {
	OK     bool `json:"ok"`
	Result File `json:"result"`
}

// GetFile resolves a file ID to a downloadable path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	if strings.TrimSpace(fileID) == "" {
		return nil, fmt.Errorf("missing file_id")
	}
	reqURL := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.baseURL, c.token, url.QueryEscape(fileID))
	raw, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var out getFileResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getFile: ok=false")
	}
	return &out.Result, nil
}

// DownloadFile fetches the bytes behind a resolved file path.
func (c *Client) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("missing file path")
	}
	reqURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
	return c.get(ctx, reqURL)
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, reqURL string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
