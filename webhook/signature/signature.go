package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// SecretPrefix marks a symmetric signing secret
	SecretPrefix = "whsec_"

	// Version is the only signature scheme produced and accepted
	Version = "v1"

	MinSecretBytes = 24
	MaxSecretBytes = 64

	HeaderID        = "Webhook-Id"
	HeaderTimestamp = "Webhook-Timestamp"
	HeaderSignature = "Webhook-Signature"
)

// Secret is an HMAC key used to sign forwarded webhooks
type Secret struct {
	raw     []byte
	encoded string
}

// GenerateSecret creates a random secret of the given size in bytes
func GenerateSecret(size int) (Secret, error) {
	if size < MinSecretBytes || size > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return Secret{}, fmt.Errorf("generating random bytes: %w", err)
	}

	return Secret{raw: raw, encoded: SecretPrefix + base64.StdEncoding.EncodeToString(raw)}, nil
}

// ParseSecret decodes a whsec_ prefixed base64 secret
func ParseSecret(encoded string) (Secret, error) {
	encoded = strings.TrimSpace(encoded)
	if !strings.HasPrefix(encoded, SecretPrefix) {
		return Secret{}, fmt.Errorf("secret must start with %s prefix", SecretPrefix)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encoded, SecretPrefix))
	if err != nil {
		return Secret{}, fmt.Errorf("decoding base64 secret: %w", err)
	}
	if len(raw) < MinSecretBytes || len(raw) > MaxSecretBytes {
		return Secret{}, fmt.Errorf("secret size must be between %d and %d bytes", MinSecretBytes, MaxSecretBytes)
	}

	return Secret{raw: raw, encoded: encoded}, nil
}

func (s Secret) String() string {
	return s.encoded
}

func (s Secret) Bytes() []byte {
	return s.raw
}

// IsZero reports whether the secret is unset
func (s Secret) IsZero() bool {
	return len(s.raw) == 0
}

// Signature is a single versioned signature, rendered as "v1,<base64>"
type Signature struct {
	Version   string
	Signature string
}

func (s Signature) String() string {
	return s.Version + "," + s.Signature
}

// Sign signs "{msgID}.{unix timestamp}.{payload}" with HMAC-SHA256
func Sign(secret Secret, msgID string, timestamp time.Time, payload []byte) (Signature, error) {
	if secret.IsZero() {
		return Signature{}, fmt.Errorf("secret is empty")
	}
	if strings.Contains(msgID, ".") {
		return Signature{}, fmt.Errorf("message ID must not contain '.'")
	}

	mac := hmac.New(sha256.New, secret.Bytes())
	mac.Write([]byte(msgID + "." + strconv.FormatInt(timestamp.Unix(), 10) + "."))
	mac.Write(payload)

	return Signature{
		Version:   Version,
		Signature: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	}, nil
}

// Verify checks a signature in constant time
func Verify(secret Secret, msgID string, timestamp time.Time, payload []byte, expected Signature) (bool, error) {
	if expected.Version != Version {
		return false, fmt.Errorf("unsupported signature version: %s", expected.Version)
	}

	calculated, err := Sign(secret, msgID, timestamp, payload)
	if err != nil {
		return false, fmt.Errorf("calculating signature: %w", err)
	}

	want, err := base64.StdEncoding.DecodeString(expected.Signature)
	if err != nil {
		return false, fmt.Errorf("decoding expected signature: %w", err)
	}
	got, _ := base64.StdEncoding.DecodeString(calculated.Signature)

	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// ParseHeader parses a space-delimited webhook-signature header: "v1,sig1 v1,sig2"
func ParseHeader(header string) ([]Signature, error) {
	var signatures []Signature
	for _, part := range strings.Fields(header) {
		version, sig, ok := strings.Cut(part, ",")
		if !ok {
			return nil, fmt.Errorf("invalid signature %q, expected 'version,signature'", part)
		}
		signatures = append(signatures, Signature{Version: version, Signature: sig})
	}
	if len(signatures) == 0 {
		return nil, fmt.Errorf("no signatures found in header")
	}
	return signatures, nil
}

// Headers returns the id, timestamp and signature headers for an outbound webhook
func Headers(secret Secret, msgID string, timestamp time.Time, payload []byte) (http.Header, error) {
	sig, err := Sign(secret, msgID, timestamp, payload)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	h.Set(HeaderID, msgID)
	h.Set(HeaderTimestamp, strconv.FormatInt(timestamp.Unix(), 10))
	h.Set(HeaderSignature, sig.String())
	return h, nil
}

// VerifyHeaders checks the signature headers produced by Headers against payload
func VerifyHeaders(secret Secret, h http.Header, payload []byte) (bool, error) {
	unix, err := strconv.ParseInt(h.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", HeaderTimestamp, err)
	}

	signatures, err := ParseHeader(h.Get(HeaderSignature))
	if err != nil {
		return false, err
	}

	for _, sig := range signatures {
		if ok, err := Verify(secret, h.Get(HeaderID), time.Unix(unix, 0), payload, sig); err == nil && ok {
			return true, nil
		}
	}
	return false, nil
}
