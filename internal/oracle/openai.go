package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/neurorouter"
)

const (
	defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"
	defaultOllamaURL = "http://localhost:11434/v1/chat/completions"
)

// OpenAI speaks the OpenAI-compatible chat completions protocol. It
// covers api.openai.com, Groq, Ollama, and anything else exposing the
// same wire format.
type OpenAI struct {
	URL         string
	Key         string
	Model       string
	MaxTokens   int
	Temperature float64
	Client      *http.Client
}

// NewOpenAI builds a chat completions client. Endpoint resolution:
// explicit URL → REDTAPE_API_URL → key present → OpenAI cloud →
// local Ollama default.
func NewOpenAI(url, keyEnv, model string, maxTokens int, temperature float64) *OpenAI {
	key := ""
	if keyEnv != "" {
		key = os.Getenv(keyEnv)
	}

	if url == "" {
		if u := os.Getenv("REDTAPE_API_URL"); u != "" {
			url = u
		} else if key != "" {
			url = defaultOpenAIURL
		} else {
			url = defaultOllamaURL
		}
	}

	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAI{
		URL:         url,
		Key:         key,
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// Invoke posts the prompt as a two-message chat completion.
func (o *OpenAI) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	if o.URL == "" {
		return Reply{}, fmt.Errorf("no endpoint configured: %w", ErrUnavailable)
	}

	messages := []map[string]string{
		{"role": "system", "content": p.System},
		{"role": "user", "content": p.User},
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model":       o.Model,
		"messages":    messages,
		"max_tokens":  o.MaxTokens,
		"temperature": o.Temperature,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", o.URL, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("create request: %w", err)
	}
	if o.Key != "" {
		req.Header.Set("Authorization", "Bearer "+o.Key)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return Reply{}, fmt.Errorf("chat HTTP 429: %w", neurorouter.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("chat HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		return Reply{}, fmt.Errorf("empty chat response")
	}

	return Reply{Text: strings.TrimSpace(result.Choices[0].Message.Content)}, nil
}
