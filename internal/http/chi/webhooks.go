package chi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/routes"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/marcelsud/webhook-relay/webhook/payload"
)

/* HTTP layer DTOs for the relay
 * Separate from domain entities to avoid leaking internal structure
 */

// forwardResponse is what the original sender sees
type forwardResponse struct {
	Source           string `json:"source"`
	Status           string `json:"status"` // delivered | accepted | failed
	DownstreamStatus int    `json:"downstream_status,omitempty"`
	Error            string `json:"error,omitempty"`
	RecordID         string `json:"record_id,omitempty"`
}

// postWebhook handles POST /webhook/{source} and /webhook/{source}/{variant}
func postWebhook(resolver Resolver, forwarder Forwarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := chi.URLParam(r, "source")
		variant := chi.URLParam(r, "variant")
		logger := httplog.LogEntry(r.Context())

		dest, err := resolver.Resolve(source, variant)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		body, err := readLimited(w, r)
		if err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			res := forwarder.RecordFailure(r.Context(), attemptFor(r, dest, nil), "failed to read request body", failure.Details{
				"kind":    string(webhook.KindInvalidRequest),
				"message": err.Error(),
				"status":  status,
			})
			writeJSON(w, status, forwardResponse{
				Source:   dest.Source,
				Status:   "failed",
				Error:    string(webhook.KindInvalidRequest),
				RecordID: res.RecordID,
			})
			return
		}

		logger.Info().
			Str("source", dest.Source).
			Str("variant", dest.Variant).
			Str("event", payload.EventType(body)).
			Int("bytes", len(body)).
			Msg("incoming webhook")

		a := attemptFor(r, dest, body)

		if !dest.Configured {
			res := forwarder.RecordNotConfigured(r.Context(), a)
			writeJSON(w, http.StatusOK, forwardResponse{Source: dest.Source, Status: "accepted", RecordID: res.RecordID})
			return
		}

		if dest.Mode == webhook.Detached {
			writeJSON(w, http.StatusOK, forwardResponse{Source: dest.Source, Status: "accepted"})
			http.NewResponseController(w).Flush()
			forwarder.Dispatch(a)
			return
		}

		res := forwarder.Forward(r.Context(), a)
		if res.Delivered() {
			writeJSON(w, http.StatusOK, forwardResponse{
				Source:           dest.Source,
				Status:           "delivered",
				DownstreamStatus: res.Response.Status,
			})
			return
		}

		if dest.Policy == webhook.Acknowledge {
			writeJSON(w, http.StatusOK, forwardResponse{Source: dest.Source, Status: "accepted", RecordID: res.RecordID})
			return
		}

		resp := forwardResponse{
			Source:   dest.Source,
			Status:   "failed",
			Error:    string(webhook.Kind(res.Err)),
			RecordID: res.RecordID,
		}
		var downstreamErr *webhook.DownstreamError
		if errors.As(res.Err, &downstreamErr) {
			resp.DownstreamStatus = downstreamErr.Status
		}
		writeJSON(w, http.StatusBadGateway, resp)
	}
}

// getWebhook handles GET /webhook/{source}: the subscription handshake, or a
// probe that is recorded for audit when the source does not verify.
func getWebhook(resolver Resolver, forwarder Forwarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dest, err := resolver.Resolve(chi.URLParam(r, "source"), "")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		a := attemptFor(r, dest, nil)
		hs := parseHandshake(r)

		if !dest.Verify && !hs.present() {
			forwarder.RecordFailure(r.Context(), a, fmt.Sprintf("test request for source %s", dest.Source), failure.Details{
				"kind":  "probe",
				"query": r.URL.RawQuery,
			})
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "%s webhook forwarding service", dest.Source)
			return
		}

		if hs.valid(resolver.VerifyToken(dest.Source)) {
			logger := httplog.LogEntry(r.Context())
			logger.Info().Str("source", dest.Source).Msg("webhook verified")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, hs.Challenge)
			return
		}

		forwarder.RecordFailure(r.Context(), a, fmt.Sprintf("verification failed for source %s", dest.Source), failure.Details{
			"kind":      string(webhook.KindVerification),
			"mode":      hs.Mode,
			"token":     hs.Token,
			"challenge": hs.Challenge,
		})
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// handshake is a subscription verification request
type handshake struct {
	Mode      string
	Token     string
	Challenge string
}

func parseHandshake(r *http.Request) handshake {
	q := r.URL.Query()
	first := func(names ...string) string {
		for _, name := range names {
			if v := q.Get(name); v != "" {
				return v
			}
		}
		return ""
	}
	return handshake{
		Mode:      first("hub.mode", "mode"),
		Token:     first("hub.verify_token", "verify_token"),
		Challenge: first("hub.challenge", "challenge"),
	}
}

func (h handshake) present() bool {
	return h.Mode != "" || h.Token != "" || h.Challenge != ""
}

func (h handshake) valid(expected string) bool {
	return h.Mode == "subscribe" && expected != "" && h.Token == expected
}

func attemptFor(r *http.Request, dest routes.Destination, body []byte) webhook.Attempt {
	return webhook.Attempt{
		Source:     dest.Source,
		Variant:    dest.Variant,
		Method:     http.MethodPost,
		TargetURL:  dest.TargetURL,
		TargetKey:  dest.TargetKey,
		Headers:    r.Header.Clone(),
		Body:       body,
		Mode:       dest.Mode,
		Policy:     dest.Policy,
		Secret:     dest.SigningSecret,
		RequestID:  middleware.GetReqID(r.Context()),
		ReceivedAt: time.Now().UTC(),
	}
}
