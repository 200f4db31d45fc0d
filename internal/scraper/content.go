package scraper

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MaxParagraphs bounds how many <p> elements the curated strategy keeps.
const MaxParagraphs = 100

// Strategy selects how a fetched page is turned into RawContent.
type Strategy string

const (
	// StrategyCurated keeps the title, h1-h3 headings, the first
	// MaxParagraphs paragraphs and the meta tags.
	StrategyCurated Strategy = "curated"
	// StrategyRaw serializes the whole parsed document tree.
	StrategyRaw Strategy = "raw"
)

// RawContent is the textual representation of one fetched URL.
type RawContent struct {
	URL      string
	Strategy Strategy
	// Text is the space-joined curated text, or the serialized markup for
	// StrategyRaw. Never empty.
	Text string
	// Meta maps a meta tag's name (or property) to its content. Only the
	// curated strategy fills it; it is supplementary context.
	Meta map[string]string
}

// ContentFetcher couples a Fetcher with one extraction strategy.
type ContentFetcher struct {
	fetcher  *Fetcher
	strategy Strategy
}

// NewContentFetcher returns a ContentFetcher using strategy.
func NewContentFetcher(f *Fetcher, strategy Strategy) *ContentFetcher {
	return &ContentFetcher{fetcher: f, strategy: strategy}
}

// Fetch retrieves targetURL and extracts its content. Any failure, including
// a page without relevant text, is a *FetchError; no empty RawContent is
// ever returned.
func (c *ContentFetcher) Fetch(ctx context.Context, targetURL string) (*RawContent, error) {
	page, err := c.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if ct := page.Headers.Get("Content-Type"); !isMarkup(ct) {
		return nil, &FetchError{URL: targetURL, StatusCode: page.StatusCode, Reason: "unsupported content type " + ct}
	}
	return Parse(c.strategy, targetURL, page.Body)
}

// Parse turns an HTML body into RawContent using strategy.
func Parse(strategy Strategy, sourceURL string, body []byte) (*RawContent, error) {
	switch strategy {
	case StrategyCurated:
		return Curate(sourceURL, body)
	case StrategyRaw:
		return Render(sourceURL, body)
	default:
		return nil, fmt.Errorf("scraper: unknown strategy %q", strategy)
	}
}

// Curate extracts the title, h1-h3 headings, the first MaxParagraphs
// paragraphs and the meta tags of an HTML document.
func Curate(sourceURL string, body []byte) (*RawContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: sourceURL, Reason: "unparseable markup", Err: err}
	}

	parts := make([]string, 0, 16)
	if title := squash(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if text := squash(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	doc.Find("p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxParagraphs {
			return false
		}
		if text := squash(s.Text()); text != "" {
			parts = append(parts, text)
		}
		return true
	})

	meta := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok || content == "" {
			return
		}
		key, ok := s.Attr("name")
		if !ok {
			key, _ = s.Attr("property")
		}
		meta[key] = content
	})

	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return nil, &FetchError{URL: sourceURL, Reason: "empty page", Err: ErrNoContent}
	}

	return &RawContent{
		URL:      sourceURL,
		Strategy: StrategyCurated,
		Text:     text,
		Meta:     meta,
	}, nil
}

// Render serializes the entire parsed document, one node per line and
// indented by depth, with text nodes whitespace-normalized. Nothing is
// filtered: a page whose only text sits in script or style elements is
// still returned as markup.
func Render(sourceURL string, body []byte) (*RawContent, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: sourceURL, Reason: "unparseable markup", Err: err}
	}

	var b strings.Builder
	renderNode(&b, root, 0)
	text := strings.TrimRight(b.String(), "\n")
	if strings.TrimSpace(text) == "" {
		return nil, &FetchError{URL: sourceURL, Reason: "empty page", Err: ErrNoContent}
	}

	return &RawContent{
		URL:      sourceURL,
		Strategy: StrategyRaw,
		Text:     text,
	}, nil
}

func renderNode(b *strings.Builder, n *html.Node, depth int) {
	indent := strings.Repeat(" ", depth)

	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c, depth)
		}

	case html.DoctypeNode:
		fmt.Fprintf(b, "%s<!DOCTYPE %s>\n", indent, n.Data)

	case html.CommentNode:
		if text := squash(n.Data); text != "" {
			fmt.Fprintf(b, "%s<!-- %s -->\n", indent, text)
		}

	case html.TextNode:
		if text := squash(n.Data); text != "" {
			if n.Parent != nil && isRawTextElement(n.Parent.Data) {
				fmt.Fprintf(b, "%s%s\n", indent, text)
				return
			}
			fmt.Fprintf(b, "%s%s\n", indent, html.EscapeString(text))
		}

	case html.ElementNode:
		b.WriteString(indent)
		b.WriteByte('<')
		b.WriteString(n.Data)
		for _, a := range n.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			fmt.Fprintf(b, ` %s="%s"`, name, html.EscapeString(a.Val))
		}
		b.WriteString(">\n")
		if isVoidElement(n.Data) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c, depth+1)
		}
		fmt.Fprintf(b, "%s</%s>\n", indent, n.Data)
	}
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isMarkup(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func isRawTextElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func isVoidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}
