package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
)

// Registry is the read-only catalog of downstream vendor templates. It is
// loaded once at startup and injected wherever templates are needed; after
// load it is never mutated, so concurrent reads need no locking.
type Registry struct {
	templates map[string]models.VendorTemplate
}

// Load builds the registry from the built-in catalog, optionally replaced by
// a JSON catalog file (an array of templates). An empty path means built-ins.
func Load(catalogPath string) (*Registry, error) {
	templates := builtinTemplates()

	if catalogPath != "" {
		data, err := os.ReadFile(catalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read template catalog %s: %w", catalogPath, err)
		}
		var loaded []models.VendorTemplate
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse template catalog %s: %w", catalogPath, err)
		}
		if len(loaded) == 0 {
			return nil, fmt.Errorf("template catalog %s contains no templates", catalogPath)
		}
		templates = loaded
		if logger.L != nil {
			logger.L.Info("Vendor template catalog loaded from file", "path", catalogPath, "templates", len(loaded))
		}
	}

	r := &Registry{templates: make(map[string]models.VendorTemplate, len(templates))}
	for _, t := range templates {
		if t.VendorKey == "" {
			return nil, fmt.Errorf("template %q has an empty vendor key", t.DisplayName)
		}
		if _, exists := r.templates[t.VendorKey]; exists {
			return nil, fmt.Errorf("duplicate vendor key %q in template catalog", t.VendorKey)
		}
		r.templates[t.VendorKey] = t
	}
	return r, nil
}

// Get looks up a template by vendor key.
func (r *Registry) Get(vendorKey string) (models.VendorTemplate, bool) {
	t, ok := r.templates[vendorKey]
	return t, ok
}

// List returns all templates sorted by vendor key.
func (r *Registry) List() []models.VendorTemplate {
	out := make([]models.VendorTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorKey < out[j].VendorKey })
	return out
}
