package routes

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/marcelsud/webhook-relay/webhook/signature"
)

// TargetKeyPrefix prefixes every destination configuration key
const TargetKeyPrefix = "TARGET_URL_"

// sourcePattern is the identifier alphabet for sources and variants
var sourcePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

/* Source is the forwarding policy of one webhook source
 * Destinations are not part of it: they are looked up by target key at resolve time
 */
type Source struct {
	Name             string
	Mode             webhook.Mode
	Policy           webhook.ResponsePolicy
	Verify           bool // answer the GET subscription handshake
	SigningSecret    signature.Secret
	DefaultTargetKey string
	Variants         map[string]Variant
}

// Variant is a sub-destination of a source, e.g. a second consumer of the same provider
type Variant struct {
	Name      string
	TargetKey string
}

// Canonical trims and lower-cases an identifier
func Canonical(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ValidIdentifier reports whether id can name a source or variant
func ValidIdentifier(id string) bool {
	return sourcePattern.MatchString(strings.TrimSpace(id))
}

// TargetKey returns the configuration key of the destination for variant ("" for the source itself)
func (s *Source) TargetKey(variant string) string {
	if variant == "" {
		if s.DefaultTargetKey != "" {
			return s.DefaultTargetKey
		}
		return DefaultTargetKey(s.Name, "")
	}
	if v, ok := s.Variants[variant]; ok && v.TargetKey != "" {
		return v.TargetKey
	}
	return DefaultTargetKey(s.Name, variant)
}

// DefaultTargetKey derives TARGET_URL_<SOURCE>[_<VARIANT>]
func DefaultTargetKey(source, variant string) string {
	key := TargetKeyPrefix + strings.ToUpper(source)
	if variant != "" {
		key += "_" + strings.ToUpper(variant)
	}
	return strings.ReplaceAll(key, "-", "_")
}

// Validate checks if the source configuration is valid
func (s *Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if !ValidIdentifier(s.Name) {
		return fmt.Errorf("source %q must match %s", s.Name, sourcePattern)
	}
	if err := s.Mode.Validate(); err != nil {
		return fmt.Errorf("invalid mode for source %s: %w", s.Name, err)
	}
	if err := s.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid response policy for source %s: %w", s.Name, err)
	}
	for name := range s.Variants {
		if !ValidIdentifier(name) {
			return fmt.Errorf("variant %q of source %s must match %s", name, s.Name, sourcePattern)
		}
	}
	return nil
}
