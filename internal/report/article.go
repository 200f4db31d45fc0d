package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TheNovakAI/google-search-blogger/internal/synth"
)

// Raw HTML in model output is dropped by goldmark's default renderer.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts Markdown to an HTML fragment.
func RenderHTML(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("report: render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Markdown returns the article as a standalone Markdown document, adding the
// title as a heading when the body lacks one.
func Markdown(a *synth.Article) string {
	body := strings.TrimSpace(a.Body)
	if a.Title == "" || strings.HasPrefix(body, "# ") {
		return body + "\n"
	}
	return "# " + a.Title + "\n\n" + body + "\n"
}

// WriteMarkdown writes the article as Markdown.
func WriteMarkdown(w io.Writer, a *synth.Article) error {
	if _, err := io.WriteString(w, Markdown(a)); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

var articleTmpl = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: sans-serif; margin: 40px auto; max-width: 760px; color: #333; line-height: 1.5; }
  blockquote { border-left: 4px solid #ccc; margin-left: 0; padding-left: 16px; color: #555; }
</style>
</head>
<body>
<article>
{{.Body}}
</article>
</body>
</html>
`))

// WriteHTML writes the article as a complete HTML page.
func WriteHTML(w io.Writer, a *synth.Article) error {
	body, err := RenderHTML(Markdown(a))
	if err != nil {
		return err
	}

	title := a.Title
	if title == "" {
		title = "Generated article"
	}

	if err := articleTmpl.Execute(w, struct {
		Title string
		Body  template.HTML
	}{title, body}); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
