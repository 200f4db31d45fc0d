package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/TheNovakAI/google-search-blogger/internal/pipeline"
	"github.com/TheNovakAI/google-search-blogger/internal/report"
)

// Generator runs the pipeline for one topic.
type Generator interface {
	Run(ctx context.Context, topic string) (*pipeline.Result, error)
}

// Server serves the one-page generation form.
type Server struct {
	gen    Generator
	logger *slog.Logger
	srv    *http.Server
	ln     net.Listener
}

// NewServer creates a form server backed by gen.
func NewServer(gen Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{gen: gen, logger: logger}
}

// Handler returns the HTTP routes: the form on GET / and generation on
// POST /generate.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleForm)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	return mux
}

// Start begins serving on addr in a background goroutine.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server failed", "err", err)
		}
	}()
	s.logger.Info("web form listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

type pageData struct {
	Topic   string
	Title   string
	Article template.HTML
	Sources []string
	Skipped int
	Error   string
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, pageData{})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	topic := r.PostFormValue("topic")
	data := pageData{Topic: topic}

	res, err := s.gen.Run(r.Context(), topic)
	if err != nil {
		status := http.StatusOK
		var se *pipeline.StageError
		switch {
		case errors.Is(err, pipeline.ErrEmptyTopic):
			status = http.StatusBadRequest
			data.Error = "Please enter a topic."
		case errors.As(err, &se):
			data.Error = se.Error()
		default:
			status = http.StatusInternalServerError
			data.Error = "Article generation failed."
			s.logger.Error("generate failed", "topic", topic, "err", err)
		}
		s.render(w, status, data)
		return
	}

	body, err := report.RenderHTML(report.Markdown(res.Article))
	if err != nil {
		s.logger.Error("render article failed", "err", err)
		data.Error = "The article could not be displayed."
		s.render(w, http.StatusInternalServerError, data)
		return
	}

	data.Title = res.Article.Title
	data.Article = body
	data.Sources = res.Sources
	data.Skipped = len(res.Skipped)
	s.render(w, http.StatusOK, data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Execute(w, data); err != nil {
		s.logger.Error("template execution failed", "err", err)
	}
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Google Search Blogger</title>
<style>
  body { font-family: sans-serif; margin: 40px auto; max-width: 760px; color: #333; line-height: 1.5; }
  form { margin-bottom: 30px; }
  input[type=text] { width: 70%; padding: 8px; }
  button { padding: 8px 16px; }
  .error { padding: 12px; background: #fdecea; color: #a12622; border-radius: 5px; }
  .meta { color: #777; font-size: 14px; }
</style>
</head>
<body>
  <h1>Google Search Blogger</h1>
  <form method="post" action="/generate">
    <input type="text" name="topic" placeholder="Enter a topic" value="{{.Topic}}" autofocus>
    <button type="submit">Generate</button>
  </form>
  {{- if .Error}}
  <div class="error">{{.Error}}</div>
  {{- end}}
  {{- if .Article}}
  <article>
{{.Article}}
  </article>
  <p class="meta">{{len .Sources}} sources used{{if .Skipped}}, {{.Skipped}} skipped{{end}}.</p>
  {{- end}}
</body>
</html>
`))
