package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TheNovakAI/google-search-blogger/internal/scraper"
)

const filterSystemPrompt = `You are an assistant that refines web content. Extract the meaningful content of the page: the main text, important keywords and useful metadata. Exclude ads, menus, navigation, cookie notices and other irrelevant sections.
Capture any sources, citations or references the content mentions.`

const rawFilterSystemPrompt = `You are an assistant that refines web pages supplied as raw HTML markup. Ignore the markup itself, scripts, styles, ads, menus, navigation, cookie notices and other irrelevant sections, and extract the meaningful content of the page: the main text, important keywords and useful metadata.
Capture any sources, citations or references the content mentions.`

const verbatimSystemPrompt = `You are a research assistant that extracts source material for a writer. Given a topic and the content of one web page, extract only the content relevant to that topic.
Preserve quotes, statistics, figures and key phrases exactly as they appear in the page, character for character. Never paraphrase, correct or reorder words inside material you present as a quote.
Wrap every passage copied word for word from the page in [[QUOTE]] and [[/QUOTE]] markers, for example: [[QUOTE]]Sales grew 12% in 2023.[[/QUOTE]]. Text outside the markers may summarize.
Keep the names of people and organizations the quotes are attributed to. If nothing on the page is relevant to the topic, say so in one sentence.`

func systemPrompt(s Strategy) string {
	switch s {
	case StrategyVerbatim:
		return verbatimSystemPrompt
	case StrategyRawFilter:
		return rawFilterSystemPrompt
	default:
		return filterSystemPrompt
	}
}

func userPrompt(s Strategy, rc *scraper.RawContent, topic string) string {
	var b strings.Builder
	switch s {
	case StrategyVerbatim:
		fmt.Fprintf(&b, "Topic: %s\n\n", topic)
		b.WriteString("Here is the extracted web content:\n")
		fmt.Fprintf(&b, "Content: %s\n", rc.Text)
		writeMeta(&b, rc.Meta)
		fmt.Fprintf(&b, "URL: %s\n\n", rc.URL)
		b.WriteString("Extract the content relevant to the topic verbatim, marking every direct quote. Exclude anything unrelated to the topic.")
	case StrategyRawFilter:
		b.WriteString("Here is the raw HTML of a web page:\n")
		fmt.Fprintf(&b, "HTML:\n%s\n", rc.Text)
		fmt.Fprintf(&b, "URL: %s\n\n", rc.URL)
		b.WriteString("Extract only the most relevant and meaningful text content, keeping the main points, essential information and any citations or references. Exclude markup, scripts, ads, menus and repeated sections.")
	default:
		b.WriteString("Here is the extracted web content:\n")
		fmt.Fprintf(&b, "Content: %s\n", rc.Text)
		writeMeta(&b, rc.Meta)
		fmt.Fprintf(&b, "URL: %s\n\n", rc.URL)
		b.WriteString("Extract only the most relevant and meaningful text content, keeping the main points, essential information and any citations or references. Exclude irrelevant details like ads, menus or repeated sections.")
	}
	return b.String()
}

// writeMeta lists meta tags in key order so identical pages give identical
// prompts.
func writeMeta(b *strings.Builder, meta map[string]string) {
	if len(meta) == 0 {
		return
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString("Meta Tags (supplementary context):\n")
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(b, "- %s: %s\n", name, meta[k])
	}
}
