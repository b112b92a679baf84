package catalog

import (
	_ "embed"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Service is a bookable offering and its usual length.
type Service struct {
	// Canonical service name, used on bookings
	Name string `yaml:"name" validate:"required"`
	// Other phrasings guests use for the service
	Aliases []string `yaml:"aliases"`
	// Default appointment length when the guest does not state one
	DurationMinutes int `yaml:"duration_minutes" validate:"min=1,max=480"`
}

type Catalog struct {
	Services []Service `yaml:"services" validate:"required,min=1,dive"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.In("catalog").With("path", path).Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var result Catalog
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.In("catalog").Errorf("failed to parse catalog YAML: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.In("catalog").Errorf("failed to validate catalog: %w", err)
	}

	for i := range result.Services {
		result.Services[i].Name = strings.ToLower(strings.TrimSpace(result.Services[i].Name))
	}
	return &result, nil
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.Services))
	for _, s := range c.Services {
		out = append(out, s.Name)
	}
	return out
}

// Match finds the service mentioned in text. Names and aliases match on word
// boundaries, plurals included; the longest matching phrase wins.
func (c *Catalog) Match(text string) (Service, bool) {
	haystack := " " + normalize(text) + " "
	var (
		best    Service
		bestLen int
	)
	for _, s := range c.Services {
		for _, phrase := range append([]string{s.Name}, s.Aliases...) {
			phrase = normalize(phrase)
			if phrase == "" || len(phrase) <= bestLen {
				continue
			}
			if strings.Contains(haystack, " "+phrase+" ") || strings.Contains(haystack, " "+phrase+"s ") {
				best, bestLen = s, len(phrase)
			}
		}
	}
	return best, bestLen > 0
}

// Lookup finds a service by canonical name or alias.
func (c *Catalog) Lookup(name string) (Service, bool) {
	name = normalize(name)
	for _, s := range c.Services {
		if normalize(s.Name) == name {
			return s, true
		}
		for _, alias := range s.Aliases {
			if normalize(alias) == name {
				return s, true
			}
		}
	}
	return Service{}, false
}

// DurationFor returns the default length for a known service.
func (c *Catalog) DurationFor(service string) (int, bool) {
	s, ok := c.Lookup(service)
	if !ok {
		return 0, false
	}
	return s.DurationMinutes, true
}

func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space && b.Len() > 0 {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
