// Package claude is a streaming client for the Anthropic Messages API.
package claude

import (
	"bytes"
	"context"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"encoding/json"

	"github.com/invopop/jsonschema"

	"bonesagent/pkg/parts"
)

// Tool is a model-facing tool declaration.
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Request is one streaming call over the full conversation.
type Request struct {
	Model    string
	System   string
	Messages []parts.Message
	Tools    []Tool
}

type bodyData struct {
	Model     string          `json:"model"`
	Messages  []parts.Message `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream"`
	System    string          `json:"system,omitempty"`
	Tools     []Tool          `json:"tools,omitempty"`
}

type Client struct {
	url       *url.URL
	apiKey    string
	version   string
	maxTokens int
	httpc     *http.Client
	logger    *slog.Logger
}

func NewClient(config *Config, apiKey string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, "/v1/messages")
	return &Client{
		url:       u,
		apiKey:    apiKey,
		version:   config.AnthropicVersion,
		maxTokens: config.MaxTokens,
		httpc:     &http.Client{},
		logger:    logger.With("component", "claude"),
	}, nil
}

func (c *Client) request(ctx context.Context, r Request) (io.ReadCloser, error) {
	body, err := json.Marshal(bodyData{
		Model:     r.Model,
		Messages:  r.Messages,
		MaxTokens: c.maxTokens,
		Stream:    true,
		System:    r.System,
		Tools:     r.Tools,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Add("x-api-key", c.apiKey)
	req.Header.Add("anthropic-version", c.version)
	req.Header.Add("content-type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return resp.Body, nil
}

// Stream issues the call and yields events as they arrive. Text
// fragments are yielded immediately; a tool_use block is yielded once
// its input JSON is complete; the stop reason is yielded last.
func (c *Client) Stream(ctx context.Context, r Request) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		c.logger.Debug("stream", "model", r.Model, "messages", len(r.Messages))
		respBody, err := c.request(ctx, r)
		if err != nil {
			yield(Event{}, err)
			return
		}
		defer respBody.Close()
		p := newEventProcessor(respBody, c.logger)
		for ev, err := range p.events() {
			if !yield(ev, err) {
				return
			}
		}
	}
}
