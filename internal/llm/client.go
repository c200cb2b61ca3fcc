// Package llm provides the vision model client and tolerant parsing of its
// free-text output.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spherical/recipe-extractor/internal/domain"
)

// Client handles communication with an OpenAI-compatible chat-completions
// endpoint. Endpoint, credential and model are supplied per call so each
// pipeline stage can target a different configuration.
type Client struct {
	httpClient *http.Client
}

// Message represents a chat message.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image).
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message.
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Response represents the API response structure.
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice.
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the assistant message of a completion choice.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient creates a new model client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete sends one prompt with the given images and returns the raw
// response text. Failed calls are not retried; the caller decides how a
// failure propagates through the pipeline.
func (c *Client) Complete(ctx context.Context, cfg domain.StageConfig, prompt string, imagePaths []string) (string, error) {
	apiReq, err := buildRequest(cfg.Model, prompt, imagePaths)
	if err != nil {
		return "", domain.APIError("build request", err)
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", domain.APIError("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", domain.APIError("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.Credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.APIError("send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", domain.APIError(fmt.Sprintf("API returned status %d: %s", resp.StatusCode, string(bodyBytes)), nil)
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", domain.APIError("decode response", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", domain.APIError("response contains no choices", nil)
	}

	return apiResp.Choices[0].Message.Content, nil
}

// Ping checks that the configured endpoint is reachable. Any HTTP response
// counts; only a transport-level failure is an error. An unreachable
// endpoint aborts the whole batch before any document is touched.
func (c *Client) Ping(ctx context.Context, cfg domain.StageConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Endpoint, nil)
	if err != nil {
		return domain.APIError("create ping request", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.APIError("endpoint unreachable: "+cfg.Endpoint, err)
	}
	resp.Body.Close()
	return nil
}

// buildRequest constructs the API request with the prompt and images
// encoded as base64 data URLs.
func buildRequest(model, prompt string, imagePaths []string) (*Request, error) {
	parts := []ContentPart{{Type: "text", Text: prompt}}

	for _, path := range imagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", path, err)
		}
		parts = append(parts, ContentPart{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:" + mimeType(path) + ";base64," + base64.StdEncoding.EncodeToString(data),
			},
		})
	}

	return &Request{
		Model:    model,
		Messages: []Message{{Role: "user", Content: parts}},
		Stream:   false,
	}, nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
