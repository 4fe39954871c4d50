package pipeline

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Rank orders factories that can handle the same media.
type Rank int

// Factory ranks.
const (
	RankNone      Rank = 0
	RankMarginal  Rank = 64
	RankSecondary Rank = 128
	RankPrimary   Rank = 256
)

// Metadata describes an element factory.
type Metadata struct {
	LongName    string
	Klass       string
	Description string
	Author      string
}

// ElementConfig is passed to factories.
type ElementConfig struct {
	Name      string
	Log       *slog.Logger
	Allocator Allocator
	// Properties are set on the new element, which must then implement
	// Configurable.
	Properties map[string]int
}

// Configurable is implemented by elements with integer properties.
type Configurable interface {
	SetProperty(name string, value int) error
	Property(name string) (int, error)
}

// ErrNotConfigurable is returned by Make when properties are given for an
// element without any.
var ErrNotConfigurable = errors.New("pipeline: element has no properties")

// Factory creates elements of one kind.
type Factory struct {
	Name     string
	Rank     Rank
	Metadata Metadata
	Create   func(cfg ElementConfig) (Element, error)
}

// ErrFactoryNotFound is returned by Make for unknown factory names.
var ErrFactoryNotFound = errors.New("pipeline: no such element factory")

// Registry holds element factories by name. Applications create one and
// register plugins into it at startup.
type Registry struct {
	mu        sync.Mutex
	factories map[string]*Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]*Factory)}
}

// Register adds f. Names are unique.
func (r *Registry) Register(f *Factory) error {
	if f.Name == "" || f.Create == nil {
		return errors.New("pipeline: factory needs a name and a constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[f.Name]; ok {
		return errors.Errorf("pipeline: element %s already registered", f.Name)
	}
	r.factories[f.Name] = f
	return nil
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (*Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factories[name]
	return f, ok
}

// Factories returns all factories, highest rank first.
func (r *Registry) Factories() []*Factory {
	r.mu.Lock()
	out := make([]*Factory, 0, len(r.factories))
	for _, f := range r.factories {
		out = append(out, f)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Make creates an element from the named factory. An empty cfg.Name
// defaults to the factory name.
func (r *Registry) Make(factory string, cfg ElementConfig) (Element, error) {
	f, ok := r.Lookup(factory)
	if !ok {
		return nil, errors.Wrap(ErrFactoryNotFound, factory)
	}
	if cfg.Name == "" {
		cfg.Name = factory
	}
	el, err := f.Create(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", factory)
	}
	if len(cfg.Properties) == 0 {
		return el, nil
	}
	c, ok := el.(Configurable)
	if !ok {
		return nil, errors.Wrap(ErrNotConfigurable, factory)
	}
	names := make([]string, 0, len(cfg.Properties))
	for name := range cfg.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.SetProperty(name, cfg.Properties[name]); err != nil {
			return nil, errors.Wrapf(err, "%s.%s", cfg.Name, name)
		}
	}
	return el, nil
}
