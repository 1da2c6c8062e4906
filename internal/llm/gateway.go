// Package llm adapts text and vision completion backends behind a single
// gateway with uniform error classification.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/akarpov/weatherchat/internal/conversation"
)

// DefaultBaseURL points at OpenRouter's OpenAI-compatible API.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Gateway abstracts the completion backends. No retries happen here; a
// single attempt fails visibly and retry policy belongs to the caller.
type Gateway interface {
	// Complete produces a chat reply for the given history.
	Complete(ctx context.Context, messages []conversation.Message) (string, error)

	// DescribeImage produces a reply for an image plus prompt text.
	DescribeImage(ctx context.Context, image []byte, prompt string) (string, error)
}

// Config holds gateway settings.
type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	VisionModel string
	// Title is sent as the X-Title attribution header when set.
	Title string
}

// OpenRouterGateway implements Gateway against OpenRouter.
type OpenRouterGateway struct {
	client      openai.Client
	chatModel   string
	visionModel string
}

// NewOpenRouterGateway creates a gateway from config.
func NewOpenRouterGateway(cfg Config) *OpenRouterGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
	}
	if cfg.Title != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.Title))
	}

	return &OpenRouterGateway{
		client:      openai.NewClient(opts...),
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
	}
}

// Complete sends the history to the chat model and returns the reply text.
func (g *OpenRouterGateway) Complete(ctx context.Context, messages []conversation.Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.chatModel),
		Messages: toParams(messages),
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	return replyText(resp)
}

// DescribeImage sends the image as a base64 data URL with the prompt to the
// vision model.
func (g *OpenRouterGateway) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(image))

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	return replyText(resp)
}

// toParams converts stored messages to the backend's message params.
func toParams(messages []conversation.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case conversation.RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content))
		default:
			params = append(params, openai.UserMessage(msg.Content))
		}
	}
	return params
}

// replyText extracts the single reply, trimmed.
func replyText(resp *openai.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", &BackendError{Kind: ErrorTransient, Err: errors.New("empty completion response")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps a raw backend failure into a BackendError. Rate limiting is
// recognized by status code or a message marker, matching OpenRouter's free
// tier behavior.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			strings.Contains(strings.ToLower(apiErr.Error()), "rate limit"):
			return &BackendError{Kind: ErrorRateLimited, Err: err}
		case apiErr.StatusCode >= http.StatusInternalServerError:
			return &BackendError{Kind: ErrorTransient, Err: err}
		default:
			return &BackendError{Kind: ErrorUnknown, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &BackendError{Kind: ErrorTransient, Err: err}
	}

	// Anything without an API response is a network-level failure.
	return &BackendError{Kind: ErrorTransient, Err: err}
}
