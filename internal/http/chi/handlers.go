package chi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/routes"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps inbound webhook bodies
const maxBodyBytes = 10 << 20

// Resolver maps a source to its destination
type Resolver interface {
	Resolve(source, variant string) (routes.Destination, error)
	VerifyToken(source string) string
}

// Forwarder runs attempts to a final state
type Forwarder interface {
	Forward(ctx context.Context, a webhook.Attempt) webhook.Result
	Dispatch(a webhook.Attempt)
	RecordNotConfigured(ctx context.Context, a webhook.Attempt) webhook.Result
	RecordFailure(ctx context.Context, a webhook.Attempt, msg string, details failure.Details) webhook.Result
}

// Handlers sets up the relay routes
func Handlers(ctx context.Context, logger zerolog.Logger, resolver Resolver, forwarder Forwarder, failures failure.UseCase) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.NotFound(undefinedRoute(failures))
	r.MethodNotAllowed(undefinedRoute(failures))

	r.Get("/health", health)
	r.Get("/api/health", health)

	r.Get("/missed-requests", getMissedRequests(failures))
	r.Get("/api/missed-requests", getMissedRequests(failures))
	r.Get("/api/undefined-routes", getUndefinedRoutes(failures))

	r.Route("/webhook/{source}", func(r chi.Router) {
		r.Get("/", getWebhook(resolver, forwarder))
		r.Post("/", postWebhook(resolver, forwarder))
		r.Post("/{variant}", postWebhook(resolver, forwarder))
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readLimited(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}
