package chi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/routes"
	"github.com/marcelsud/webhook-relay/webhook/payload"
)

// getMissedRequests handles GET /missed-requests?source=
func getMissedRequests(failures failure.UseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := failure.Filter{Source: routes.Canonical(r.URL.Query().Get("source"))}

		records, err := failures.Query(r.Context(), filter)
		if err != nil {
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Msg("fetching missed requests")
			http.Error(w, "Error fetching missed requests", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, records)
	}
}

// getUndefinedRoutes handles GET /api/undefined-routes?limit=
func getUndefinedRoutes(failures failure.UseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 100
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
				return
			}
			limit = n
		}

		entries, err := failures.QueryUndefined(r.Context(), limit)
		if err != nil {
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Msg("fetching undefined routes")
			http.Error(w, "Error fetching undefined routes", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, entries)
	}
}

// undefinedRoute records any request no route matched, then answers 404
func undefinedRoute(failures failure.UseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := readLimited(w, r)

		_, err := failures.RecordUndefined(r.Context(), failure.UndefinedRoute{
			Method:    r.Method,
			URL:       r.URL.RequestURI(),
			Headers:   r.Header.Clone(),
			Body:      payload.Capture(body),
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			logger := httplog.LogEntry(r.Context())
			logger.Error().Err(err).Str("url", r.URL.RequestURI()).Msg("failed to record undefined route")
		}

		http.Error(w, "Not Found", http.StatusNotFound)
	}
}
