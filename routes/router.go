package routes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/marcelsud/webhook-relay/webhook/signature"
)

var (
	ErrInvalidSource = errors.New("invalid source")
	ErrNotConfigured = errors.New("destination not configured")
)

// Destinations looks up deployment-provided values by configuration key
type Destinations interface {
	TargetURL(key string) string
	VerifyToken(source string) string
}

// Destination is a resolved source: where to forward and how
type Destination struct {
	Source        string
	Variant       string
	TargetKey     string
	TargetURL     string
	Mode          webhook.Mode
	Policy        webhook.ResponsePolicy
	Verify        bool
	SigningSecret signature.Secret
	Configured    bool
}

// Err returns ErrNotConfigured for an unconfigured destination, nil otherwise
func (d Destination) Err() error {
	if d.Configured {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotConfigured, d.TargetKey)
}

/* Router maps a source identifier to its destination
 * Uses pointer semantics as it's an API, not data
 * Resolve has no side effects, safe for concurrent use once loaded
 */
type Router struct {
	loader       *Loader
	destinations Destinations
}

// NewRouter creates a router over loaded sources and a destination lookup
func NewRouter(loader *Loader, destinations Destinations) *Router {
	return &Router{loader: loader, destinations: destinations}
}

// Resolve validates source (and optional variant) and returns its destination.
// A missing destination is not an error: it comes back with Configured == false.
func (r *Router) Resolve(source, variant string) (Destination, error) {
	if strings.TrimSpace(source) == "" || !ValidIdentifier(source) {
		return Destination{}, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if strings.TrimSpace(variant) != "" && !ValidIdentifier(variant) {
		return Destination{}, fmt.Errorf("%w: variant %q", ErrInvalidSource, variant)
	}

	src := r.loader.Lookup(source)
	v := Canonical(variant)
	if v != "" && len(src.Variants) > 0 {
		if _, ok := src.Variants[v]; !ok {
			return Destination{}, fmt.Errorf("%w: unknown variant %q for source %s", ErrInvalidSource, variant, src.Name)
		}
	}

	key := src.TargetKey(v)
	target := strings.TrimSpace(r.destinations.TargetURL(key))

	return Destination{
		Source:        src.Name,
		Variant:       v,
		TargetKey:     key,
		TargetURL:     target,
		Mode:          src.Mode,
		Policy:        src.Policy,
		Verify:        src.Verify,
		SigningSecret: src.SigningSecret,
		Configured:    target != "",
	}, nil
}

// VerifyToken returns the handshake token of a source, or "" when none is configured
func (r *Router) VerifyToken(source string) string {
	return strings.TrimSpace(r.destinations.VerifyToken(Canonical(source)))
}

// Sources returns the sources listed in the policy file
func (r *Router) Sources() []*Source {
	return r.loader.List()
}
