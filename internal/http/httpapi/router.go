package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"postcreator/internal/http/handlers"
	"postcreator/internal/infra"
	"postcreator/internal/middleware"
)

// NewRouter wires the web form routes. rateLimitPerMin caps form submissions
// per client IP; zero disables the cap.
func NewRouter(app *handlers.App, logger infra.Logger, rateLimitPerMin int) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/healthz", app.Health)
	r.Get("/healthz/backend", app.BackendHealth)

	r.Get("/", app.Index)
	r.Get("/state", app.State)
	r.With(middleware.RateLimit(rateLimitPerMin, time.Minute)).Post("/generate", app.Generate)

	return r
}
