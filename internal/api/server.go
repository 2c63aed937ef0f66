// Package api provides the liveness HTTP endpoint. The hosting platform
// requires a process to answer HTTP to be considered alive; this server does
// nothing else and is not part of the notification path.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the liveness router. Every path answers 200 OK.
func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
	r.Get("/", ok)
	r.Get("/health", ok)
	r.NotFound(ok)

	return r
}
