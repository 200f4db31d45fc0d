package pipeline

import (
	"errors"
	"fmt"
)

// Fatal failures. Each ends the run; errors.Is works through *StageError.
var (
	ErrSearch     = errors.New("search failed")
	ErrNoResults  = errors.New("no search results")
	ErrNoExtracts = errors.New("no usable extracts")
	ErrSynthesis  = errors.New("synthesis failed")
)

// ErrEmptyTopic is returned before any stage runs.
var ErrEmptyTopic = errors.New("pipeline: topic cannot be empty")

// Stage names the point at which a run ended in failure.
type Stage string

const (
	StageSearch    Stage = "search"
	StageNoResults Stage = "no-results"
	StageNoContent Stage = "no-content"
	StageSynthesis Stage = "synthesis"
)

func (s Stage) sentinel() error {
	switch s {
	case StageSearch:
		return ErrSearch
	case StageNoResults:
		return ErrNoResults
	case StageNoContent:
		return ErrNoExtracts
	default:
		return ErrSynthesis
	}
}

// StageError is a fatal pipeline failure. Its message is meant for the end
// user and names the failed stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StageSearch:
		return fmt.Sprintf("web search failed: %v", e.Err)
	case StageNoResults:
		return "web search returned no usable results"
	case StageNoContent:
		return "no valid content could be extracted from the search results"
	default:
		return fmt.Sprintf("article synthesis failed: %v", e.Err)
	}
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Stage.sentinel()}
	}
	return []error{e.Stage.sentinel(), e.Err}
}
