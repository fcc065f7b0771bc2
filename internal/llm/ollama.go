// Package llm is the "llm" text-extraction back-end: a vision language model
// served through the Ollama chat API.
//
// The model sees one crop image together with the facet's instruction and
// must answer with the text it reads. Requests go to POST /api/chat with
// streaming disabled. An optional rate limit keeps a shared local model from
// being flooded.
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
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Binnette/hiking-signs-ai/internal/logging"
	"github.com/Binnette/hiking-signs-ai/internal/textract"
)

// Name is the back-end name used in property keys.
const Name = "llm"

// DefaultEndpoint is the local Ollama server.
const DefaultEndpoint = "http://localhost:11434"

// DefaultPrompt asks for the French text on a sign, nothing else.
const DefaultPrompt = "Extract and correct the french text from this image. Do not add any additional text. Just output the text you manage to read."

// Options configures the client.
type Options struct {
	Endpoint string
	Model    string
	// RequestsPerSecond limits calls; zero means unlimited.
	RequestsPerSecond float64
	// HTTPTimeout bounds one HTTP exchange; zero means no client-side limit.
	HTTPTimeout time.Duration
}

// Client implements textract.Backend against an Ollama server.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// New creates a client. Model is required.
func New(opts Options, logger *logging.Logger) (*Client, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = logging.Discard()
	}

	c := &Client{
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		model:      opts.Model,
		httpClient: &http.Client{Timeout: opts.HTTPTimeout},
		logger:     logger,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// Name implements textract.Backend.
func (c *Client) Name() string { return Name }

// Model returns the configured model.
func (c *Client) Model() string { return c.model }

// Extract implements textract.Backend.
func (c *Client) Extract(ctx context.Context, req textract.Request) (string, error) {
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read crop: %w", err)
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return c.Chat(ctx, prompt, data)
}

// Chat sends prompt and one image, and returns the model's answer.
func (c *Client) Chat(ctx context.Context, prompt string, image []byte) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(image)},
		}},
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request to ollama failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var chatResp chatResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &chatResp) == nil && chatResp.Error != "" {
			return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, chatResp.Error)
		}
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", chatResp.Error)
	}

	c.logger.Debug("chat complete",
		"model", c.model,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"textLength", len(chatResp.Message.Content))

	return chatResp.Message.Content, nil
}

// CheckModel reports whether the server lists the configured model. A bare
// model name matches any tag ("moondream" matches "moondream:latest").
func (c *Client) CheckModel(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to ollama failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to parse model list: %w", err)
	}

	for _, m := range tags.Models {
		if m.Name == c.model || (!strings.Contains(c.model, ":") && strings.HasPrefix(m.Name, c.model+":")) {
			return nil
		}
	}
	return fmt.Errorf("model %q not available on %s", c.model, c.endpoint)
}
