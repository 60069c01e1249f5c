package backend

import (
	"fmt"

	"optimizer.app/relay/common/llm"
)

// Registry owns the configured adapters for the life of the process.
type Registry struct {
	preprocessor Adapter
	backends     []Adapter
	byID         map[string]Adapter
}

func NewRegistry(preprocessor Adapter, backends []Adapter) (*Registry, error) {
	if preprocessor == nil {
		return nil, fmt.Errorf("preprocessor is required")
	}

	byID := make(map[string]Adapter, len(backends))
	for _, b := range backends {
		if _, dup := byID[b.ID()]; dup {
			return nil, fmt.Errorf("duplicate backend id %q", b.ID())
		}
		byID[b.ID()] = b
	}

	return &Registry{
		preprocessor: preprocessor,
		backends:     append([]Adapter(nil), backends...),
		byID:         byID,
	}, nil
}

// LoadRegistry reads the roster at path and builds its adapters.
func LoadRegistry(path string, opts Options) (*Registry, error) {
	roster, err := LoadRoster(path)
	if err != nil {
		return nil, err
	}
	return Build(roster, opts)
}

// Build creates one chat client and adapter per roster entry.
func Build(roster *Roster, opts Options) (*Registry, error) {
	newAdapter := func(cfg Config) (Adapter, error) {
		client, err := llm.New(llm.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			HTTPClient: opts.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("backend %q: %w", cfg.ID, err)
		}
		return NewChatAdapter(cfg, client, opts), nil
	}

	pre, err := newAdapter(roster.Preprocessor)
	if err != nil {
		return nil, err
	}

	backends := make([]Adapter, 0, len(roster.Backends))
	for _, cfg := range roster.Backends {
		a, err := newAdapter(cfg)
		if err != nil {
			return nil, err
		}
		backends = append(backends, a)
	}

	return NewRegistry(pre, backends)
}

func (r *Registry) Lookup(id string) (Adapter, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Backends returns the generation backends in roster order.
func (r *Registry) Backends() []Adapter {
	return append([]Adapter(nil), r.backends...)
}

func (r *Registry) Preprocessor() Adapter {
	return r.preprocessor
}

// DisplayName falls back to the id for unknown backends.
func (r *Registry) DisplayName(id string) string {
	if a, ok := r.byID[id]; ok {
		return a.DisplayName()
	}
	return id
}
