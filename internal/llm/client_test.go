package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/packing-list-extractor/internal/config"
	"github.com/spherical/packing-list-extractor/internal/domain"
)

var fakeJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func testPage(t *testing.T) domain.PageImage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page_1.jpg")
	require.NoError(t, os.WriteFile(path, fakeJPEG, 0o644))
	return domain.PageImage{PageNumber: 1, ImagePath: path, Width: 2480, Height: 3508}
}

func TestNewClients_DefaultModel(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
		build func(model string) interface{ Model() string }
	}{
		{
			name:  "anthropic default",
			build: func(m string) interface{ Model() string } { return NewAnthropicClient("key", m) },
			want:  defaultAnthropicModel,
		},
		{
			name:  "anthropic custom",
			model: "claude-sonnet-4-5",
			build: func(m string) interface{ Model() string } { return NewAnthropicClient("key", m) },
			want:  "claude-sonnet-4-5",
		},
		{
			name:  "openrouter default",
			build: func(m string) interface{ Model() string } { return NewOpenRouterClient("key", m) },
			want:  defaultOpenRouterModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.build(tt.model).Model())
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := buildPrompt(2, 5)
	require.NoError(t, err)

	assert.Contains(t, prompt, "page 2 of 5")
	assert.Contains(t, prompt, "Commodity Name")
	assert.Contains(t, prompt, "default to 1 if not found")
	assert.Contains(t, prompt, "default to 'BOX' if not found")
	assert.Contains(t, prompt, `{"Commodity Name": "Product A", "Qty": 10, "UOM": "BOX"}`)
}

func TestAnthropicClient_Extract(t *testing.T) {
	page := testPage(t)

	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Widget A, 5, BOX"}],"stop_reason":"end_turn"}`)
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "", WithBaseURL(server.URL), WithMaxTokens(1024))
	text, err := client.Extract(context.Background(), page, 3)
	require.NoError(t, err)
	assert.Equal(t, "Widget A, 5, BOX", text)

	assert.Equal(t, defaultAnthropicModel, captured.Model)
	assert.Equal(t, 1024, captured.MaxTokens)
	assert.Zero(t, captured.Temperature)
	require.Len(t, captured.Messages, 1)
	require.Len(t, captured.Messages[0].Content, 2)
	assert.Contains(t, captured.Messages[0].Content[0].Text, "page 1 of 3")

	img := captured.Messages[0].Content[1]
	assert.Equal(t, "image", img.Type)
	require.NotNil(t, img.Source)
	assert.Equal(t, "image/jpeg", img.Source.MediaType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(fakeJPEG), img.Source.Data)
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "api error",
			status:  http.StatusTooManyRequests,
			body:    `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantMsg: "rate_limit_error: slow down",
		},
		{
			name:    "empty content",
			status:  http.StatusOK,
			body:    `{"content":[],"stop_reason":"end_turn"}`,
			wantMsg: "empty response",
		},
		{
			name:    "whitespace only",
			status:  http.StatusOK,
			body:    `{"content":[{"type":"text","text":"  \n"}]}`,
			wantMsg: "empty response",
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"content":`,
			wantMsg: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewAnthropicClient("k", "", WithBaseURL(server.URL))
			_, err := client.Extract(context.Background(), testPage(t), 1)
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAnthropicClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewAnthropicClient("k", "", WithBaseURL(url))
	_, err := client.Extract(context.Background(), testPage(t), 1)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
}

func TestAnthropicClient_MissingImage(t *testing.T) {
	client := NewAnthropicClient("k", "")
	page := domain.PageImage{PageNumber: 1, ImagePath: filepath.Join(t.TempDir(), "gone.jpg")}

	_, err := client.Extract(context.Background(), page, 1)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeExtraction))
}

func TestOpenRouterClient_Extract(t *testing.T) {
	page := testPage(t)

	var captured Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Widget A, 5, BOX\n"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Widget B,,EA"},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewOpenRouterClient("or-key", "", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	text, err := client.Extract(context.Background(), page, 2)
	require.NoError(t, err)
	assert.Equal(t, "Widget A, 5, BOX\nWidget B,,EA", text)

	assert.True(t, captured.Stream)
	assert.Equal(t, defaultOpenRouterModel, captured.Model)
	require.Len(t, captured.Messages, 1)
	parts := captured.Messages[0].Content
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestOpenRouterClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"No auth credentials found"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewOpenRouterClient("bad", "", WithBaseURL(server.URL))
	_, err := client.Extract(context.Background(), testPage(t), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "No auth credentials found")
}

func TestOpenRouterClient_EmptyStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewOpenRouterClient("k", "", WithBaseURL(server.URL))
	_, err := client.Extract(context.Background(), testPage(t), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestNewVisionClient(t *testing.T) {
	cfg := config.DefaultConfig().LLM
	cfg.APIKey = "key"

	client, err := NewVisionClient(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)

	cfg.Provider = config.ProviderOpenRouter
	client, err = NewVisionClient(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenRouterClient{}, client)

	cfg.Provider = "bogus"
	_, err = NewVisionClient(cfg, nil)
	assert.Error(t, err)

	cfg.Provider = config.ProviderAnthropic
	cfg.APIKey = ""
	_, err = NewVisionClient(cfg, nil)
	assert.True(t, domain.IsType(err, domain.ErrorTypeConfig))
}
