package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"postcreator/internal/domain"
	"postcreator/internal/form"
	"postcreator/internal/infra"
	"postcreator/internal/poller"
	"postcreator/internal/present"
	"postcreator/internal/providers/postapi"
)

//go:embed templates/*.html
var templateFS embed.FS

// API is the subset of the post generation API the web form uses.
type API interface {
	form.JobCreator
	JobStatus(ctx context.Context, jobID string) (*domain.Job, error)
	Health(ctx context.Context) (*postapi.Health, error)
}

// Options configures the web form handlers.
type Options struct {
	API    API
	Policy poller.Policy
	Logger *infra.Logger
	// SessionIdle is how long an unseen browser session is kept. Zero means
	// thirty minutes.
	SessionIdle time.Duration
}

// App serves the single-page generation form. Each browser session owns its
// own form state and at most one background status tracker.
type App struct {
	api      API
	policy   poller.Policy
	logger   *infra.Logger
	sessions *sessionStore
	pages    *template.Template

	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(opts Options) (*App, error) {
	if opts.API == nil {
		return nil, errors.New("handlers: api client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	pages, err := template.New("pages").Funcs(template.FuncMap{
		"label": present.OptionLabel,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("handlers: parse templates: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		api:      opts.API,
		policy:   opts.Policy,
		logger:   logger,
		sessions: newSessionStore(opts.SessionIdle),
		pages:    pages,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Close stops every running status tracker.
func (a *App) Close() {
	a.cancel()
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
