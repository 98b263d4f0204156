// Package tagging suggests tags for new questions through an
// OpenAI-compatible chat-completions endpoint. Tagging is best-effort:
// callers fall back to an empty tag list on any failure.
package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Tagger produces tags for a question. May fail; callers must treat failure
// as "no tags".
type Tagger interface {
	GenerateTags(ctx context.Context, title, content string) ([]string, error)
}

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a tagging client. baseURL may be empty for the OpenAI
// default or point at any compatible endpoint.
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateTags asks the model for up to five short tags describing the
// question and parses them from a JSON array in the reply.
func (c *Client) GenerateTags(ctx context.Context, title, content string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Suggest up to 5 short lowercase tags for the following support question. "+
			"Respond with a JSON array of strings only.\n\nTitle: %s\n\n%s", title, content)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tagging API returned status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("tagging API returned no choices")
	}

	return parseTags(cr.Choices[0].Message.Content)
}

// parseTags extracts a JSON string array from the model reply, tolerating
// surrounding prose or a markdown code fence.
func parseTags(reply string) ([]string, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in model reply")
	}

	var tags []string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &tags); err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) > 5 {
		cleaned = cleaned[:5]
	}
	return cleaned, nil
}
