// Package backend talks to the remote bot service: an HTTP API for
// outbound messages and prompt management, and a websocket event stream
// feeding the reconciliation queue.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatpanel/internal/models"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// SendMessage posts a user message to the backend.
func (c *Client) SendMessage(ctx context.Context, msg models.OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/send_message", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send failed: backend returned %s", resp.Status)
	}
	return nil
}

// GetPrompt fetches prompt content by type (core|main|subprompt) and name.
func (c *Client) GetPrompt(ctx context.Context, promptType, promptName string) (string, error) {
	params := url.Values{"prompt_type": {promptType}}
	if promptName != "" {
		params.Set("prompt_name", promptName)
	}

	var out struct {
		Prompt string `json:"prompt"`
	}
	if err := c.getJSON(ctx, "/api/prompt?"+params.Encode(), &out); err != nil {
		return "", err
	}
	return out.Prompt, nil
}

// SavePrompt stores prompt content for the given type and name.
func (c *Client) SavePrompt(ctx context.Context, promptType, promptName, content string) error {
	payload := map[string]any{
		"prompt_type":    promptType,
		"prompt_content": content,
	}
	if promptName != "" {
		payload["prompt_name"] = promptName
	}
	return c.postJSON(ctx, "/api/save-prompt", payload)
}

// ListSubprompts returns the available subprompt names.
func (c *Client) ListSubprompts(ctx context.Context) ([]string, error) {
	var out struct {
		Prompts []string `json:"prompts"`
	}
	if err := c.getJSON(ctx, "/api/subprompts", &out); err != nil {
		return nil, err
	}
	return out.Prompts, nil
}

// CreateSubprompt creates an empty subprompt with the given name.
func (c *Client) CreateSubprompt(ctx context.Context, name string) error {
	params := url.Values{"prompt_name": {name}}
	return c.do(ctx, http.MethodPost, "/api/create-subprompt?"+params.Encode(), nil)
}

// DeleteSubprompt removes a subprompt by name.
func (c *Client) DeleteSubprompt(ctx context.Context, name string) error {
	params := url.Values{"prompt_name": {name}}
	return c.do(ctx, http.MethodDelete, "/api/delete-subprompt?"+params.Encode(), nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	return nil
}
