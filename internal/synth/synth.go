package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TheNovakAI/google-search-blogger/internal/extract"
	"github.com/TheNovakAI/google-search-blogger/internal/llm"
)

// ErrNoExtracts is returned, without calling the model, when there is
// nothing to synthesize.
var ErrNoExtracts = errors.New("no extracts to synthesize")

// Default model settings for synthesis calls.
const (
	DefaultModel     = "gpt-4o"
	DefaultMaxTokens = 10000
)

const systemPrompt = `You are a professional blog writer. Combine the provided source extracts into a single cohesive, engaging and informative blog post written in Markdown.
The post must have a unique tone and a logical flow, use the top keywords from the sources naturally, and contain an introduction, a body that covers the key points from every source, and a conclusion. Merge points that several sources make instead of repeating them.
Cite every source you use by its URL, inline or in a closing sources section.
Text between [[QUOTE]] and [[/QUOTE]] markers is a direct quote: reproduce it exactly inside quotation marks, never paraphrase it, and attribute it to its source URL. Do not output the markers themselves.`

// Article is the synthesized document.
type Article struct {
	Title string
	// Body is Markdown and references every source in Sources.
	Body    string
	Sources []string
	Model   string
	// Truncated is set when the model stopped at the token bound.
	Truncated bool
}

// Config holds the model settings for synthesis calls.
type Config struct {
	Model     string
	MaxTokens int
}

// Synthesizer merges extracts into one Article.
type Synthesizer struct {
	completer llm.Completer
	cfg       Config
	logger    *slog.Logger
}

// New returns a Synthesizer. Zero Config fields take the package defaults.
func New(c llm.Completer, cfg Config, logger *slog.Logger) *Synthesizer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{completer: c, cfg: cfg, logger: logger}
}

// Synthesize merges extracts into an Article. When topic is non-empty it is
// used verbatim as the title. No partial article is ever returned.
func (s *Synthesizer) Synthesize(ctx context.Context, extracts []*extract.Extract, topic string) (*Article, error) {
	extracts = usable(extracts)
	if len(extracts) == 0 {
		return nil, ErrNoExtracts
	}
	topic = strings.TrimSpace(topic)

	sources := make([]string, 0, len(extracts))
	for _, e := range extracts {
		sources = append(sources, e.URL)
	}

	user := userPrompt(extracts, topic)
	s.logger.Debug("synthesizing", "sources", len(extracts), "prompt_bytes", len(user))

	c, err := s.completer.Complete(ctx, llm.Request{
		Op:        "synthesize",
		Model:     s.cfg.Model,
		System:    systemPrompt,
		User:      user,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("synth: %w", err)
	}
	if c == nil || strings.TrimSpace(c.Text) == "" {
		return nil, fmt.Errorf("synth: %w", llm.ErrEmptyCompletion)
	}
	if c.Truncated() {
		s.logger.Warn("article truncated at token bound", "max_tokens", s.cfg.MaxTokens)
	}

	body := extract.RenderQuotes(strings.TrimSpace(c.Text))
	title := topic
	if title == "" {
		title = firstHeading(body)
	}
	body = ensureSourcesCited(body, sources)

	return &Article{
		Title:     title,
		Body:      body,
		Sources:   sources,
		Model:     c.Model,
		Truncated: c.Truncated(),
	}, nil
}

func usable(in []*extract.Extract) []*extract.Extract {
	out := make([]*extract.Extract, 0, len(in))
	for _, e := range in {
		if e != nil && strings.TrimSpace(e.Text) != "" {
			out = append(out, e)
		}
	}
	return out
}

func userPrompt(extracts []*extract.Extract, topic string) string {
	var b strings.Builder
	if topic != "" {
		fmt.Fprintf(&b, "Topic: %s\nUse the topic exactly as written as the title and thesis of the post.\n\n", topic)
	}
	fmt.Fprintf(&b, "Here are the refined extracts from %d sources:\n\n", len(extracts))
	for i, e := range extracts {
		fmt.Fprintf(&b, "### Source %d: %s\n%s\n\n", i+1, e.URL, e.Text)
	}
	b.WriteString("Combine these extracts into a single well-written blog post that is unique, informative and uses keywords well. Include citations for all referenced content.")
	return b.String()
}

// ensureSourcesCited appends a Sources list naming every URL the body does
// not mention.
func ensureSourcesCited(body string, sources []string) string {
	var missing []string
	for _, u := range sources {
		if !cites(body, u) {
			missing = append(missing, u)
		}
	}
	if len(missing) == 0 {
		return body
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n## Sources\n\n")
	for _, u := range missing {
		fmt.Fprintf(&b, "- <%s>\n", u)
	}
	return strings.TrimRight(b.String(), "\n")
}

// cites reports whether body mentions u as a whole URL, so that
// https://a.example/page is not satisfied by https://a.example/page2.
func cites(body, u string) bool {
	if u == "" {
		return false
	}
	for rest := body; ; {
		i := strings.Index(rest, u)
		if i < 0 {
			return false
		}
		rest = rest[i+len(u):]
		if urlEnds(rest) {
			return true
		}
	}
}

// urlEnds reports whether a URL may end right before rest. Sentence
// punctuation ends it only when followed by whitespace or the end of text.
func urlEnds(rest string) bool {
	if rest == "" {
		return true
	}
	switch c := rest[0]; c {
	case ' ', '\t', '\n', '\r', ')', ']', '>', '"', '\'', '`', '*', '|':
		return true
	case '.', ',', ';', ':', '!', '?':
		return urlEnds(strings.TrimLeft(rest, ".,;:!?"))
	}
	return false
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}
