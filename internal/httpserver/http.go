package httpserver

import (
	"net/http"
	"time"

	"opacity-verifier/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter routes health, webhook, verification and ledger endpoints.
func NewRouter(h handlers.VerifyHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	r.Post("/mentions", h.Mentions)
	r.Post("/verify/{tweetID}", h.VerifyTweet)
	r.Get("/verified/{authorID}", h.Verified)
	return r
}

// NewServer creates the HTTP server listening on port.
func NewServer(port string, h handlers.VerifyHandler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
