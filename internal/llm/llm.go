package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the model answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// FinishReasonLength marks a completion cut off by the token bound.
const FinishReasonLength = "length"

// Request is one system+user chat completion call.
type Request struct {
	// Op names the call site ("extract", "synthesize") for errors and metrics.
	Op        string
	Model     string
	System    string
	User      string
	MaxTokens int
}

// Completion is a successful model response.
type Completion struct {
	Text             string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Truncated reports whether the response stopped at the token bound.
func (c *Completion) Truncated() bool {
	return c.FinishReason == FinishReasonLength
}

// Completer is the language-model boundary. Implementations never return a
// nil error together with an empty Text.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Error is a failed model call.
type Error struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (*Completion, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req Request) (*Completion, error) {
	return f(ctx, req)
}
