package routes

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/marcelsud/webhook-relay/webhook/signature"
	"gopkg.in/yaml.v3"
)

/* Loader manages source policies from sources.yaml
 * Provides in-memory lookup for fast access
 */

// File represents the structure of sources.yaml
type File struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig represents a single source in the YAML file
type SourceConfig struct {
	Source           string          `yaml:"source"`
	Mode             string          `yaml:"mode"`     // sync | detached, default from config
	Response         string          `yaml:"response"` // honest | acknowledge, default from config
	Verify           bool            `yaml:"verify"`
	SigningSecret    string          `yaml:"signing_secret"`
	DefaultTargetKey string          `yaml:"default_target_key"`
	Variants         []VariantConfig `yaml:"variants"`
}

// VariantConfig represents a sub-destination in the YAML file
type VariantConfig struct {
	Name      string `yaml:"name"`
	TargetKey string `yaml:"target_key"`
}

// Defaults apply to sources that leave mode or response unset, and to unlisted sources
type Defaults struct {
	Mode   webhook.Mode
	Policy webhook.ResponsePolicy
}

// Loader holds the loaded sources
type Loader struct {
	defaults Defaults
	sources  map[string]*Source
}

// NewLoader creates a new source loader
func NewLoader(defaults Defaults) *Loader {
	if defaults.Mode.Validate() != nil {
		defaults.Mode = webhook.Synchronous
	}
	if defaults.Policy.Validate() != nil {
		defaults.Policy = webhook.Honest
	}
	return &Loader{
		defaults: defaults,
		sources:  make(map[string]*Source),
	}
}

// Load reads and parses a sources.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading sources file: %w", err)
	}
	return l.Parse(data)
}

// Parse loads sources from YAML content. Nothing is kept if any source is invalid.
func (l *Loader) Parse(data []byte) error {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing sources YAML: %w", err)
	}

	parsed := make(map[string]*Source, len(file.Sources))
	for _, sc := range file.Sources {
		source, err := l.build(sc)
		if err != nil {
			return fmt.Errorf("validating source: %w", err)
		}
		if _, dup := parsed[source.Name]; dup {
			return fmt.Errorf("validating source: duplicate source %s", source.Name)
		}
		parsed[source.Name] = source
	}

	for name, source := range parsed {
		l.sources[name] = source
	}
	return nil
}

func (l *Loader) build(sc SourceConfig) (*Source, error) {
	source := &Source{
		Name:             Canonical(sc.Source),
		Mode:             l.defaults.Mode,
		Policy:           l.defaults.Policy,
		Verify:           sc.Verify,
		DefaultTargetKey: strings.TrimSpace(sc.DefaultTargetKey),
		Variants:         make(map[string]Variant, len(sc.Variants)),
	}
	if strings.TrimSpace(sc.Mode) != "" {
		source.Mode = webhook.NewMode(sc.Mode)
	}
	if strings.TrimSpace(sc.Response) != "" {
		source.Policy = webhook.NewResponsePolicy(sc.Response)
	}

	if sc.SigningSecret != "" {
		secret, err := signature.ParseSecret(sc.SigningSecret)
		if err != nil {
			return nil, fmt.Errorf("invalid signing_secret for source %s: %w", source.Name, err)
		}
		source.SigningSecret = secret
	}

	for _, vc := range sc.Variants {
		name := Canonical(vc.Name)
		source.Variants[name] = Variant{Name: name, TargetKey: strings.TrimSpace(vc.TargetKey)}
	}

	if err := source.Validate(); err != nil {
		return nil, err
	}
	return source, nil
}

// Get retrieves a configured source by name
func (l *Loader) Get(name string) (*Source, error) {
	source, exists := l.sources[Canonical(name)]
	if !exists {
		return nil, fmt.Errorf("source not found: %s", name)
	}
	return source, nil
}

// Lookup returns the configured source, or one built from the defaults for an unlisted source
func (l *Loader) Lookup(name string) *Source {
	if source, err := l.Get(name); err == nil {
		return source
	}
	return &Source{
		Name:   Canonical(name),
		Mode:   l.defaults.Mode,
		Policy: l.defaults.Policy,
	}
}

// List returns all loaded sources sorted by name
func (l *Loader) List() []*Source {
	sources := make([]*Source, 0, len(l.sources))
	for _, source := range l.sources {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources
}

// Exists checks if a source is configured
func (l *Loader) Exists(name string) bool {
	_, exists := l.sources[Canonical(name)]
	return exists
}
