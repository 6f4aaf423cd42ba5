package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spherical/packing-list-extractor/internal/domain"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com"
	anthropicMessagesPath = "/v1/messages"
	anthropicVersion      = "2023-06-01"
	defaultAnthropicModel = "claude-3-5-sonnet-20241022"
)

// AnthropicClient extracts commodity rows through the Anthropic Messages API
type AnthropicClient struct {
	apiKey string
	model  string
	opts   clientOptions
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient creates a client for the Anthropic Messages API
func NewAnthropicClient(apiKey, model string, opts ...Option) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		apiKey: apiKey,
		model:  model,
		opts:   newClientOptions(anthropicBaseURL, opts),
	}
}

// Model returns the model the client sends requests to
func (c *AnthropicClient) Model() string {
	return c.model
}

// Extract sends one page image and returns the model's text response
func (c *AnthropicClient) Extract(ctx context.Context, page domain.PageImage, totalPages int) (string, error) {
	req, err := c.buildRequest(page, totalPages)
	if err != nil {
		return "", domain.ExtractionError("Failed to build request", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.ExtractionError("Failed to marshal request", err)
	}

	url := strings.TrimRight(c.opts.baseURL, "/") + anthropicMessagesPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domain.ExtractionError("Failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.opts.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.ExtractionError("Failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", domain.ExtractionError(
			fmt.Sprintf("API returned status %d", resp.StatusCode),
			domain.APIError(apiErrorMessage(respBody), nil),
		)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.ExtractionError("Failed to decode response", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", domain.ExtractionError("API returned empty response", nil)
	}

	c.opts.logger.Debug().
		Int("page", page.PageNumber).
		Str("model", c.model).
		Str("stop_reason", parsed.StopReason).
		Dur("duration", time.Since(start)).
		Msg("Received vision response")

	return text.String(), nil
}

// buildRequest constructs the Messages API request with the page image
func (c *AnthropicClient) buildRequest(page domain.PageImage, totalPages int) (*anthropicRequest, error) {
	prompt, err := buildPrompt(page.PageNumber, totalPages)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	data, err := encodeImage(page.ImagePath)
	if err != nil {
		return nil, err
	}

	return &anthropicRequest{
		Model:       c.model,
		MaxTokens:   c.opts.maxTokens,
		Temperature: 0,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContent{
					{Type: "text", Text: prompt},
					{
						Type: "image",
						Source: &anthropicSource{
							Type:      "base64",
							MediaType: "image/jpeg",
							Data:      data,
						},
					},
				},
			},
		},
	}, nil
}

// apiErrorMessage pulls the message out of an Anthropic error body, falling
// back to the raw body.
func apiErrorMessage(body []byte) string {
	var errResp anthropicErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("%s: %s", errResp.Error.Type, errResp.Error.Message)
	}
	return strings.TrimSpace(string(body))
}
