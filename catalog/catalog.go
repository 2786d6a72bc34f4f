// Package catalog loads function definitions from YAML files so tenant
// catalogs can be maintained without code changes.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agendo/engine/types"
)

// File is the top-level YAML catalog document.
type File struct {
	Domains map[string][]Entry `yaml:"domains"`
}

// Entry is one function definition in the catalog file.
type Entry struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Category    string         `yaml:"category"`
	Parameters  map[string]any `yaml:"parameters"`
	Tags        []string       `yaml:"tags"`
	Permissions []string       `yaml:"permissions"`
	Deprecated  bool           `yaml:"deprecated"`
	ReplacedBy  string         `yaml:"replaced_by"`
	DependsOn   []string       `yaml:"depends_on"`
	Middleware  []string       `yaml:"middleware"`
	RateLimit   *RateLimit     `yaml:"rate_limit"`
}

// RateLimit mirrors types.RateLimit in YAML form.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// YAMLProvider implements registry.CatalogProvider over a parsed catalog
// file.
type YAMLProvider struct {
	file File
}

// Load parses a catalog file from disk.
func Load(path string) (*YAMLProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a provider from raw YAML.
func Parse(data []byte) (*YAMLProvider, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for domain, entries := range file.Domains {
		for _, entry := range entries {
			if entry.ID == "" || entry.Name == "" {
				return nil, fmt.Errorf("catalog entry in domain %q missing id or name", domain)
			}
		}
	}
	return &YAMLProvider{file: file}, nil
}

// Functions implements registry.CatalogProvider.
func (p *YAMLProvider) Functions(domain string) []types.RegisteredFunction {
	entries := p.file.Domains[domain]
	fns := make([]types.RegisteredFunction, 0, len(entries))
	for _, entry := range entries {
		fns = append(fns, entry.toFunction(domain))
	}
	return fns
}

// Domains lists the domains present in the catalog.
func (p *YAMLProvider) Domains() []string {
	domains := make([]string, 0, len(p.file.Domains))
	for domain := range p.file.Domains {
		domains = append(domains, domain)
	}
	return domains
}

func (e Entry) toFunction(domain string) types.RegisteredFunction {
	fn := types.RegisteredFunction{
		ID:              e.ID,
		Name:            e.Name,
		Description:     e.Description,
		Domain:          domain,
		Category:        types.Category(e.Category),
		MiddlewareNames: e.Middleware,
		Metadata: types.FunctionMetadata{
			Tags:        e.Tags,
			Permissions: e.Permissions,
			Deprecated:  e.Deprecated,
			ReplacedBy:  e.ReplacedBy,
			DependsOn:   e.DependsOn,
		},
	}
	if e.Parameters != nil {
		// YAML maps re-encode cleanly as a JSON schema object.
		if raw, err := json.Marshal(e.Parameters); err == nil {
			fn.Parameters = raw
		}
	}
	if e.RateLimit != nil {
		fn.Metadata.RateLimit = &types.RateLimit{
			Requests: e.RateLimit.Requests,
			Window:   e.RateLimit.Window,
		}
	}
	return fn
}
