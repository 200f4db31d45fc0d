package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/TheNovakAI/google-search-blogger/internal/metrics"
	"github.com/TheNovakAI/google-search-blogger/pkg/httpclient"
)

// Config holds the OpenAI credentials and transport settings.
type Config struct {
	APIKey       string
	Organization string
	Project      string
	// BaseURL overrides the API root, e.g. "http://127.0.0.1:8080/v1".
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// OpenAI implements Completer against the chat completions API.
type OpenAI struct {
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI builds a client from explicit credentials. An API key is required.
func NewOpenAI(cfg Config, logger *slog.Logger) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: api key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	hc, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		Transport:    cfg.Transport,
		Headers:      map[string]string{"OpenAI-Project": cfg.Project},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.OrgID = cfg.Organization
	oc.HTTPClient = hc.Client

	return &OpenAI{client: openai.NewClientWithConfig(oc), logger: logger}, nil
}

// Complete sends one system+user exchange and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, req Request) (*Completion, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, &Error{Op: req.Op, StatusCode: statusCode(err), Err: err}
	}

	metrics.RecordLLMCall(req.Op, req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, time.Since(start))

	if len(resp.Choices) == 0 {
		return nil, &Error{Op: req.Op, Err: ErrEmptyCompletion}
	}
	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return nil, &Error{Op: req.Op, Err: ErrEmptyCompletion}
	}

	c := &Completion{
		Text:             text,
		Model:            resp.Model,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if c.Truncated() {
		o.logger.Warn("completion stopped at token bound", "op", req.Op, "model", req.Model, "max_tokens", req.MaxTokens)
	}
	o.logger.Debug("completion done", "op", req.Op, "model", c.Model,
		"prompt_tokens", c.PromptTokens, "completion_tokens", c.CompletionTokens, "duration", time.Since(start))
	return c, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
