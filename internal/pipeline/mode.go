package pipeline

import (
	"fmt"
	"strings"

	"github.com/TheNovakAI/google-search-blogger/internal/extract"
	"github.com/TheNovakAI/google-search-blogger/internal/scraper"
)

// Mode selects one (fetch strategy, extraction strategy) pair for a run.
type Mode string

const (
	// ModeCurated fetches curated page fields and filters them.
	ModeCurated Mode = "curated"
	// ModeVerbatim fetches curated fields and extracts topic-relevant
	// material verbatim. The topic also titles the article.
	ModeVerbatim Mode = "verbatim"
	// ModeRaw fetches the full markup and filters it.
	ModeRaw Mode = "raw"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeCurated, ModeVerbatim, ModeRaw}

// ModeNames renders Modes for help and error text, e.g. "curated, verbatim or raw".
func ModeNames() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

// ParseMode parses a mode name, case-insensitively. Empty means ModeCurated.
func ParseMode(s string) (Mode, error) {
	want := Mode(strings.ToLower(strings.TrimSpace(s)))
	if want == "" {
		return ModeCurated, nil
	}
	for _, m := range Modes {
		if m == want {
			return m, nil
		}
	}
	return "", fmt.Errorf("pipeline: unknown mode %q (want %s)", s, ModeNames())
}

// FetchStrategy is the content strategy used by the mode.
func (m Mode) FetchStrategy() scraper.Strategy {
	if m == ModeRaw {
		return scraper.StrategyRaw
	}
	return scraper.StrategyCurated
}

// ExtractStrategy is the extraction instruction set used by the mode.
func (m Mode) ExtractStrategy() extract.Strategy {
	switch m {
	case ModeVerbatim:
		return extract.StrategyVerbatim
	case ModeRaw:
		return extract.StrategyRawFilter
	default:
		return extract.StrategyFilter
	}
}

// DefaultLimit is how many ranked results the mode consumes by default.
func (m Mode) DefaultLimit() int {
	if m == ModeVerbatim {
		return 30
	}
	return 20
}

// TopicToSynthesizer reports whether the topic is handed to the synthesizer
// as the article title.
func (m Mode) TopicToSynthesizer() bool {
	return m == ModeVerbatim
}
