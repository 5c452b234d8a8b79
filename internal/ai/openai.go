package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"sme-billing/internal/config"
)

// OpenAICompleter sends chat completions with inline images to an OpenAI-compatible endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter builds a completer from the AI settings.
func NewOpenAICompleter(cfg config.AIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for ai extraction")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(1)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompleter{client: &client, model: cfg.Model}, nil
}

// Complete asks for a JSON object reply. The schema travels in the system prompt.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.UserPrompt)}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    dataURL(img),
			Detail: "high",
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(parts),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	out := &Completion{
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 {
		return out, fmt.Errorf("%w: no choices returned", ErrInvalidReply)
	}
	out.Content = strings.TrimSpace(resp.Choices[0].Message.Content)
	if out.Content == "" {
		return out, fmt.Errorf("%w: empty response content", ErrInvalidReply)
	}
	return out, nil
}

// dataURL inlines an image as a base64 data URL.
func dataURL(img Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
