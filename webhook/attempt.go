package webhook

import (
	"net/http"
	"time"

	"github.com/marcelsud/webhook-relay/webhook/signature"
)

/* Attempt is one inbound webhook on its way to a destination
 * Uses value semantics as it represents data, not behavior
 * The inbound headers travel with the attempt: the outbound client never holds request state
 */
type Attempt struct {
	Source     string
	Variant    string
	Method     string
	TargetURL  string
	TargetKey  string // configuration key the target was looked up under
	Headers    http.Header
	Body       []byte
	Mode       Mode
	Policy     ResponsePolicy
	Secret     signature.Secret // zero value disables outbound signing
	RequestID  string
	ReceivedAt time.Time
}

// Clone returns a deep copy, safe to hand to a goroutine that outlives the inbound request
func (a Attempt) Clone() Attempt {
	c := a
	c.Headers = a.Headers.Clone()
	if a.Body != nil {
		c.Body = append([]byte(nil), a.Body...)
	}
	return c
}
