package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"pdf-summarizer/internal/domain/model"
	"pdf-summarizer/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates
var templatesFS embed.FS

// Tracker is the part of the job tracker the web UI drives.
type Tracker interface {
	Submit(ctx context.Context, sub model.Submission) (usecase.TrackedJob, error)
	List() []usecase.TrackedJob
	Get(id string) (usecase.TrackedJob, error)
	Toggle(id string) (bool, error)
	Download(id string) (usecase.Transcript, error)
}

type Options struct {
	Lang           string
	RefreshEvery   time.Duration // page auto-refresh while a job is processing
	MaxUploadBytes int64
	Metrics        http.Handler // mounted at /metrics when set
}

type Server struct {
	tracker Tracker
	msgs    usecase.Messages
	opts    Options
	log     *zerolog.Logger
	page    *template.Template
	md      goldmark.Markdown
}

func NewServer(tracker Tracker, msgs usecase.Messages, opts Options, logger *zerolog.Logger) *Server {
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	if opts.RefreshEvery < time.Second {
		opts.RefreshEvery = time.Second
	}
	l := logger.With().Str("component", "WebServer").Logger()
	s := &Server{
		tracker: tracker,
		msgs:    msgs,
		opts:    opts,
		log:     &l,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
	s.page = template.Must(template.New("index.html").Funcs(template.FuncMap{
		"t":        msgs.T,
		"markdown": s.renderMarkdown,
	}).ParseFS(templatesFS, "templates/index.html"))
	return s
}

// Routes builds the router for the UI and its JSON mirror.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/", s.handleIndex)
	r.Post("/submit", s.handleSubmit)
	r.Post("/jobs/{id}/toggle", s.handleToggle)
	r.Get("/jobs/{id}/download", s.handleDownload)

	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{id}", s.handleGetJob)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics)
	}
	return r
}

// renderMarkdown converts a summary to HTML. goldmark drops raw HTML unless
// WithUnsafe is set, so service output cannot inject markup.
func (s *Server) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
