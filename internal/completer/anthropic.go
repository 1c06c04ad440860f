package completer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	ierr "github.com/cozmogo/cozmogo/internal/errors"
	"github.com/cozmogo/cozmogo/internal/logger"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// Anthropic talks to the Anthropic Messages API. The zero value is not
// usable; construct with NewAnthropic.
type Anthropic struct {
	apiKey     string
	model      string
	maxTokens  int
	url        string
	httpClient *http.Client
	retry      RetryConfig
}

// NewAnthropic creates a Messages API client.
func NewAnthropic(apiKey, model string, maxTokens int) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing API key")
	}
	if model == "" {
		return nil, fmt.Errorf("missing model name")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		url:        anthropicURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retry:      DefaultRetryConfig,
	}, nil
}

type wireRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []wireMessage   `json:"messages"`
	Tools     json.RawMessage `json:"tools,omitempty"`
}

type wireMessage struct {
	Role    string        `json:"role"`
	Content []wireContent `json:"content"`
}

type wireContent struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	ID     string          `json:"id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Source *wireImage      `json:"source,omitempty"`
}

type wireImage struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type wireResponse struct {
	Content    []wireContent `json:"content"`
	StopReason string        `json:"stop_reason"`
}

// Complete sends one turn's context as a single user message. A camera
// frame, when present, rides along as an image block before the text.
func (a *Anthropic) Complete(ctx context.Context, req Request) (*Reply, error) {
	var content []wireContent
	if len(req.Image) > 0 {
		content = append(content, wireContent{
			Type: "image",
			Source: &wireImage{
				Type:      "base64",
				MediaType: "image/jpeg",
				Data:      base64.StdEncoding.EncodeToString(req.Image),
			},
		})
	}
	content = append(content, wireContent{Type: "text", Text: req.Context})

	wireReq := wireRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    req.System,
		Messages:  []wireMessage{{Role: "user", Content: content}},
	}
	if len(req.Tools) > 0 {
		tools, err := json.Marshal(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("marshal tool declarations: %w", err)
		}
		wireReq.Tools = tools
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	resp, err := doWithRetry(ctx, a.retry, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("content-type", "application/json")
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("x-api-key", a.apiKey)
		return a.httpClient.Do(httpReq)
	})
	if err != nil {
		return nil, ierr.NewTransientError("anthropic request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.NewTransientError("read anthropic response", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, ierr.NewTransientError("anthropic request",
			fmt.Errorf("API error %d: %s", resp.StatusCode, respBody))
	default:
		return nil, fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, respBody)
	}

	var wireResp wireResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}

	if wireResp.StopReason == "refusal" {
		logger.Warn("completion refused by backend")
		return nil, ErrBlocked
	}

	reply := &Reply{}
	for _, c := range wireResp.Content {
		switch c.Type {
		case "text":
			reply.Text += c.Text
		case "tool_use":
			var args map[string]any
			if len(c.Input) > 0 {
				if err := json.Unmarshal(c.Input, &args); err != nil {
					return nil, fmt.Errorf("decode tool call %s input: %w", c.Name, err)
				}
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: c.ID, Name: c.Name, Args: args})
		}
	}
	return reply, nil
}
