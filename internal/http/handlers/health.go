package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BackendHealth reports whether the generation API answers its health probe.
func (a *App) BackendHealth(w http.ResponseWriter, r *http.Request) {
	h, err := a.api.Health(r.Context())
	if err != nil {
		a.logger.Warn().Err(err).Msg("web: backend health probe failed")
		a.error(w, http.StatusBadGateway, "backend_unavailable", "generation API is not reachable")
		return
	}
	a.json(w, http.StatusOK, h)
}
