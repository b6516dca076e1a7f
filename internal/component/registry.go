// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  At start-up cmd/web calls
// MountAll, which hands every component its Deps through Init and lets it
// add Routes to the shared router.

package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Initializer is optional.  If a Component implements it, MountAll calls
// Init(deps) once before mounting its routes.
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Routes(r) registers every page the component serves, e.g:
//
//	r.Get("/login", getLogin)
//	r.Post("/login", postLogin)
//
// Components share one router, so two components must not claim the same
// pattern.
type Component interface {
	Name() string
	Routes(r chi.Router)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MountAll initialises each registered component with deps and adds its
// routes to r.
func MountAll(r chi.Router, deps Deps) error {
	return mount(r, deps, All())
}

func mount(r chi.Router, deps Deps, comps []Component) error {
	for _, c := range comps {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(deps); err != nil {
				return fmt.Errorf("component %s: init: %w", c.Name(), err)
			}
		}
		c.Routes(r)
		if deps.Log != nil {
			deps.Log.Infow("component mounted", "component", c.Name())
		}
	}
	return nil
}
