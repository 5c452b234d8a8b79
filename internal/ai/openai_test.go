package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sme-billing/internal/config"
)

// chatRequest is the subset of the chat completion body the tests inspect.
type chatRequest struct {
	Model          string `json:"model"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL struct {
		URL    string `json:"url"`
		Detail string `json:"detail"`
	} `json:"image_url"`
}

func newChatServer(t *testing.T, status int, reply string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCompleter(t *testing.T, baseURL string) *OpenAICompleter {
	t.Helper()
	c, err := NewOpenAICompleter(config.AIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOpenAICompleter: %v", err)
	}
	return c
}

const chatReply = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "test-model-2025",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  {\"items\": []}\n"}
  }],
  "usage": {"prompt_tokens": 812, "completion_tokens": 37, "total_tokens": 849}
}`

func TestOpenAICompleterComplete(t *testing.T) {
	var got chatRequest
	srv := newChatServer(t, http.StatusOK, chatReply, &got)
	png := []byte("\x89PNG\r\n\x1a\nfake")

	out, err := newTestCompleter(t, srv.URL).Complete(context.Background(), CompletionRequest{
		SystemPrompt: "system",
		UserPrompt:   "extract the items",
		Images:       []Image{{Filename: "a.png", MIMEType: "image/png", Data: png}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if out.Content != `{"items": []}` {
		t.Errorf("Content = %q", out.Content)
	}
	if out.Model != "test-model-2025" || out.PromptTokens != 812 || out.CompletionTokens != 37 {
		t.Errorf("accounting = %+v", out)
	}

	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
	if got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format.type = %q, want json_object", got.ResponseFormat.Type)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	var parts []contentPart
	if err := json.Unmarshal(got.Messages[1].Content, &parts); err != nil {
		t.Fatalf("decode user content: %v", err)
	}
	if len(parts) != 2 || parts[0].Type != "text" || parts[0].Text != "extract the items" {
		t.Fatalf("parts = %+v", parts)
	}
	wantURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	if parts[1].Type != "image_url" || parts[1].ImageURL.URL != wantURL {
		t.Errorf("image part = %+v, want url %q", parts[1], wantURL)
	}
}

func TestOpenAICompleterNoChoices(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{
		"id": "chatcmpl-2", "object": "chat.completion", "created": 1760000000, "model": "test-model",
		"choices": [],
		"usage": {"prompt_tokens": 10, "completion_tokens": 0, "total_tokens": 10}
	}`, nil)

	out, err := newTestCompleter(t, srv.URL).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	if !errors.Is(err, ErrInvalidReply) {
		t.Fatalf("err = %v, want ErrInvalidReply", err)
	}
	if out == nil || out.PromptTokens != 10 {
		t.Errorf("tokens should still be reported, got %+v", out)
	}
}

func TestOpenAICompleterHTTPError(t *testing.T) {
	srv := newChatServer(t, http.StatusBadRequest,
		`{"error": {"message": "bad image", "type": "invalid_request_error"}}`, nil)

	_, err := newTestCompleter(t, srv.URL).Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	if err == nil || errors.Is(err, ErrInvalidReply) {
		t.Fatalf("err = %v, want a transport error", err)
	}
}

func TestNewOpenAICompleterRequiresKey(t *testing.T) {
	if _, err := NewOpenAICompleter(config.AIConfig{Model: "m"}); err == nil {
		t.Error("expected an error without an API key")
	}
}
