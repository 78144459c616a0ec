package webhook

import (
	"fmt"
	"strings"
)

/* Mode represents how an inbound webhook is forwarded
 * Synchronous blocks the inbound request on the forward and replies with its outcome
 * Detached acknowledges first and forwards in a background task
 */
type Mode int

const (
	Synchronous Mode = iota + 1
	Detached
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case Synchronous:
		return "sync"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// NewMode creates a Mode from a string
func NewMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync", "synchronous":
		return Synchronous
	case "detached", "async", "fire-and-forget":
		return Detached
	default:
		return Synchronous // callers see the forward outcome unless told otherwise
	}
}

// Validate checks if the mode is valid
func (m Mode) Validate() error {
	if m != Synchronous && m != Detached {
		return fmt.Errorf("invalid forwarding mode: %d", m)
	}
	return nil
}

/* ResponsePolicy decides what the original sender sees when a forward fails
 * Honest answers with an error status
 * Acknowledge answers 200 regardless, for senders that retry aggressively or disable integrations on errors
 */
type ResponsePolicy int

const (
	Honest ResponsePolicy = iota + 1
	Acknowledge
)

func (p ResponsePolicy) String() string {
	switch p {
	case Honest:
		return "honest"
	case Acknowledge:
		return "acknowledge"
	default:
		return "unknown"
	}
}

// NewResponsePolicy creates a ResponsePolicy from a string
func NewResponsePolicy(s string) ResponsePolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "honest":
		return Honest
	case "acknowledge", "ack":
		return Acknowledge
	default:
		return Honest
	}
}

// Validate checks if the policy is valid
func (p ResponsePolicy) Validate() error {
	if p != Honest && p != Acknowledge {
		return fmt.Errorf("invalid response policy: %d", p)
	}
	return nil
}
