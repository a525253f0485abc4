// Package claude talks to the Anthropic messages API for screenshot analysis.
package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/screenshotai/internal/imaging"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-3-5-sonnet-20241022"
	apiVersion     = "2023-06-01"

	summaryMaxTokens  = 200
	analysisMaxTokens = 300
)

const analysisPrompt = `Analyze this screenshot and determine:

1. Content type (webpage, app, document, social media, etc.)
2. If webpage: extract any visible URLs or domains
3. If research-related: identify key topics
4. User context: what might they want to do with this?

Respond with:
CONTENT_TYPE: [webpage/app/document/social/game/other]
WEBPAGE_URL: [URL if visible, or "none"]
RESEARCH_TOPICS: [comma-separated topics if research-related]
USER_INTENT: [likely user intent]
FOLLOW_UP: [suggested follow-up actions]`

// UpstreamError reports a failed call to the AI service: transport failure,
// non-success status, or a response missing the expected answer field.
type UpstreamError struct {
	Message string
	Status  int
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("claude API error: %s (status %d)", e.Message, e.Status)
	}
	return "claude API error: " + e.Message
}

// Client is a typed client for the Anthropic messages endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, preserving a trailing-slash-free form.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a Client with the given API key.
func NewClient(apiKey string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request/response schema for the messages endpoint. Only the fields this
// service reads are modeled; unknown response fields are ignored.

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BriefSummary asks for a short description of the screenshot. The prompt is
// framed for desktop or iPhone captures depending on the source tag. A failure
// here aborts the whole submission.
func (c *Client) BriefSummary(ctx context.Context, img *imaging.ProcessedImage, source string) (string, error) {
	prompt := "Analyze this iPhone screenshot briefly. What is shown and what might be the user's intent?"
	if strings.HasPrefix(source, "desktop") {
		prompt = "Analyze this desktop screenshot briefly. What is shown and what might be the user's intent?"
	}

	return c.sendVisionPrompt(ctx, prompt, summaryMaxTokens, img)
}

// AnalyzeContent runs the structured classification prompt. Unlike the
// summary, a failed call degrades to the default analysis instead of
// returning an error; the summary is still usable without it.
func (c *Client) AnalyzeContent(ctx context.Context, img *imaging.ProcessedImage) ContentAnalysis {
	text, err := c.sendVisionPrompt(ctx, analysisPrompt, analysisMaxTokens, img)
	if err != nil {
		c.log.Warn("content analysis call failed, using defaults", zap.Error(err))
		return DefaultContentAnalysis()
	}
	return ParseContentAnalysis(text)
}

func (c *Client) sendVisionPrompt(ctx context.Context, prompt string, maxTokens int, img *imaging.ProcessedImage) (string, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "text", Text: prompt},
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: img.MediaType,
					Data:      img.Base64Data,
				}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Message: "request rejected", Status: resp.StatusCode}
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &UpstreamError{Message: "failed to parse response: " + err.Error()}
	}

	if len(parsed.Content) == 0 || parsed.Content[0].Text == "" {
		return "", &UpstreamError{Message: "invalid response format"}
	}

	return parsed.Content[0].Text, nil
}
