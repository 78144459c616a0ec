package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/webhook/payload"
	"github.com/marcelsud/webhook-relay/webhook/signature"
	"github.com/rs/zerolog"
)

// DefaultRecordTimeout bounds a single failure-record write
const DefaultRecordTimeout = 5 * time.Second

// Sender performs one outbound forward
type Sender interface {
	Send(ctx context.Context, out OutboundRequest) (Response, error)
}

// Observer receives forwarding measurements
type Observer interface {
	ObserveAttempt(ctx context.Context, source string, mode Mode, state State, elapsed time.Duration)
	ObserveDetached(ctx context.Context, delta int64)
}

// NopObserver discards all measurements
type NopObserver struct{}

func (NopObserver) ObserveAttempt(context.Context, string, Mode, State, time.Duration) {}
func (NopObserver) ObserveDetached(context.Context, int64)                             {}

// Result is the outcome of one attempt once it reached a final state
type Result struct {
	State     State
	Response  Response
	Err       error  // forwarding error, nil when delivered
	RecordID  string // id of the failure record, when one was written
	RecordErr error  // storage error, logged and never escalated
}

// Delivered reports whether the downstream accepted the forward
func (r Result) Delivered() bool {
	return r.State == Delivered
}

/* Executor forwards attempts and records the ones that fail
 * Uses pointer semantics as it's an API, not data
 */
type Executor struct {
	client        Sender
	recorder      failure.Recorder
	logger        zerolog.Logger
	observer      Observer
	recordTimeout time.Duration
	now           func() time.Time
	inflight      sync.WaitGroup
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

func WithLogger(logger zerolog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		if o != nil {
			e.observer = o
		}
	}
}

func WithRecordTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.recordTimeout = d
		}
	}
}

// NewExecutor creates an executor with dependency injection
func NewExecutor(client Sender, recorder failure.Recorder, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:        client,
		recorder:      recorder,
		logger:        zerolog.Nop(),
		observer:      NopObserver{},
		recordTimeout: DefaultRecordTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forward runs one attempt to a final state. A failed forward is recorded
// exactly once, a delivered one is never recorded.
func (e *Executor) Forward(ctx context.Context, a Attempt) Result {
	if a.TargetURL == "" {
		return e.RecordNotConfigured(ctx, a)
	}

	start := e.now()
	e.step(a, Received, Forwarding)

	explicit, err := e.explicitHeaders(a)
	if err != nil {
		e.step(a, Forwarding, Failed)
		return e.record(ctx, a, start, err, failure.Details{"kind": string(KindInvalidRequest), "message": err.Error()})
	}

	resp, err := e.client.Send(ctx, OutboundRequest{
		Method:    a.Method,
		URL:       a.TargetURL,
		Body:      a.Body,
		Forwarded: a.Headers,
		Headers:   explicit,
	})
	if err != nil {
		e.step(a, Forwarding, Failed)
		return e.record(ctx, a, start, err, ErrorDetails(err))
	}

	e.step(a, Forwarding, Delivered)
	e.observer.ObserveAttempt(ctx, a.Source, a.Mode, Delivered, e.now().Sub(start))
	e.log(a).Info().Int("downstream_status", resp.Status).Msg("webhook delivered")

	return Result{State: Delivered, Response: resp}
}

// Dispatch forwards a private copy of the attempt in a background task.
// The caller is expected to have answered the inbound request already.
func (e *Executor) Dispatch(a Attempt) {
	a = a.Clone()
	e.inflight.Add(1)
	e.observer.ObserveDetached(context.Background(), 1)

	go func() {
		defer e.inflight.Done()
		defer e.observer.ObserveDetached(context.Background(), -1)
		defer func() {
			if rec := recover(); rec != nil {
				e.log(a).Error().Interface("panic", rec).Msg("detached forward panicked")
			}
		}()

		e.Forward(context.Background(), a)
	}()
}

// Drain waits for in-flight detached forwards or for ctx to end
func (e *Executor) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining detached forwards: %w", ctx.Err())
	}
}

// RecordNotConfigured records an attempt whose source has no destination
func (e *Executor) RecordNotConfigured(ctx context.Context, a Attempt) Result {
	key := a.TargetKey
	if key == "" {
		key = a.Source
	}
	msg := fmt.Sprintf("no destination configured for %s", key)
	details := failure.Details{"kind": string(KindNotConfigured), "target_key": a.TargetKey}

	a.TargetURL = ""
	e.step(a, Received, Failed)
	return e.record(ctx, a, e.now(), errors.New(msg), details)
}

// RecordFailure records an attempt rejected before any forward, such as a failed handshake
func (e *Executor) RecordFailure(ctx context.Context, a Attempt, msg string, details failure.Details) Result {
	e.step(a, Received, Failed)
	return e.record(ctx, a, e.now(), errors.New(msg), details)
}

func (e *Executor) record(ctx context.Context, a Attempt, start time.Time, cause error, details failure.Details) Result {
	e.observer.ObserveAttempt(ctx, a.Source, a.Mode, Failed, e.now().Sub(start))
	e.step(a, Failed, Recording)

	target := a.TargetURL
	if target == "" {
		target = failure.NotConfiguredTarget
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.recordTimeout)
	defer cancel()

	id, err := e.recorder.Record(recordCtx, failure.Record{
		Source:       a.Source,
		Payload:      payload.Capture(a.Body),
		Headers:      a.Headers.Clone(),
		TargetURL:    target,
		ErrorMessage: cause.Error(),
		ErrorDetails: details,
	})
	if err != nil {
		e.step(a, Recording, RecordFailed)
		e.log(a).Error().Err(err).AnErr("cause", cause).Msg("failed to record undelivered webhook")
		return Result{State: RecordFailed, Err: cause, RecordErr: err}
	}

	e.step(a, Recording, Recorded)
	e.log(a).Warn().Err(cause).Str("record_id", id).Msg("webhook not delivered, recorded")
	return Result{State: Recorded, Err: cause, RecordID: id}
}

// explicitHeaders are set by the relay itself and override anything forwarded
func (e *Executor) explicitHeaders(a Attempt) (http.Header, error) {
	h := http.Header{}
	if a.RequestID != "" {
		h.Set("X-Request-Id", a.RequestID)
	}
	if a.Secret.IsZero() {
		return h, nil
	}

	signed, err := signature.Headers(a.Secret, "msg_"+uuid.NewString(), e.now(), a.Body)
	if err != nil {
		return nil, fmt.Errorf("signing forward: %w", err)
	}
	for name, values := range signed {
		h[name] = values
	}
	return h, nil
}

func (e *Executor) step(a Attempt, from, to State) {
	if !from.CanTransition(to) {
		e.log(a).Error().Stringer("from", from).Stringer("to", to).Msg("invalid attempt transition")
		return
	}
	e.log(a).Debug().Stringer("from", from).Stringer("to", to).Msg("attempt transition")
}

func (e *Executor) log(a Attempt) *zerolog.Logger {
	l := e.logger.With().
		Str("source", a.Source).
		Str("variant", a.Variant).
		Str("mode", a.Mode.String()).
		Str("target", a.TargetURL).
		Logger()
	return &l
}
