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
	openRouterURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel = "google/gemini-2.5-flash"
)

// OpenRouterClient handles communication with the OpenRouter API
type OpenRouterClient struct {
	apiKey string
	model  string
	opts   clientOptions
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Response represents one streamed completion chunk
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Delta        Delta  `json:"delta"`
	Message      Delta  `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Delta represents a message delta in streaming response
type Delta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// NewOpenRouterClient creates a new OpenRouter vision client
func NewOpenRouterClient(apiKey, model string, opts ...Option) *OpenRouterClient {
	if model == "" {
		model = defaultOpenRouterModel
	}

	return &OpenRouterClient{
		apiKey: apiKey,
		model:  model,
		opts:   newClientOptions(openRouterURL, opts),
	}
}

// Model returns the model the client sends requests to
func (c *OpenRouterClient) Model() string {
	return c.model
}

// Extract sends one page image and collects the streamed response text
func (c *OpenRouterClient) Extract(ctx context.Context, page domain.PageImage, totalPages int) (string, error) {
	req, err := c.buildRequest(page, totalPages)
	if err != nil {
		return "", domain.ExtractionError("Failed to build request", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", domain.ExtractionError("Failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", domain.ExtractionError("Failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical/packing-list-extractor")
	httpReq.Header.Set("X-Title", "Packing List Extractor")

	start := time.Now()
	resp, err := c.opts.httpClient.Do(httpReq)
	if err != nil {
		return "", domain.ExtractionError("Failed to send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", domain.ExtractionError(
			fmt.Sprintf("API returned status %d", resp.StatusCode),
			domain.APIError(strings.TrimSpace(string(bodyBytes)), nil),
		)
	}

	text, err := NewStreamParser(resp.Body).Collect()
	if err != nil {
		return "", domain.ExtractionError("Failed to parse stream", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ExtractionError("API returned empty response", nil)
	}

	c.opts.logger.Debug().
		Int("page", page.PageNumber).
		Str("model", c.model).
		Dur("duration", time.Since(start)).
		Msg("Received vision response")

	return text, nil
}

// buildRequest constructs the API request with the image
func (c *OpenRouterClient) buildRequest(page domain.PageImage, totalPages int) (*Request, error) {
	prompt, err := buildPrompt(page.PageNumber, totalPages)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	base64Image, err := encodeImage(page.ImagePath)
	if err != nil {
		return nil, err
	}

	msg := Message{
		Role: "user",
		Content: []ContentPart{
			{
				Type: "text",
				Text: prompt,
			},
			{
				Type: "image_url",
				ImageURL: &ImageURL{
					URL: "data:image/jpeg;base64," + base64Image,
				},
			},
		},
	}

	return &Request{
		Model:       c.model,
		Messages:    []Message{msg},
		MaxTokens:   c.opts.maxTokens,
		Temperature: 0,
		Stream:      true,
	}, nil
}
