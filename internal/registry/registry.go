package registry

import (
	"fmt"
	"sync"
)

// origin records whether a descriptor was registered statically at server
// construction or found by a discovery scan, so list ordering can honor the
// "static first, then discovery, stable within each group" rule.
type origin int

const (
	originStatic origin = iota
	originDiscovered
)

type entry struct {
	descriptor *Descriptor
	origin     origin
	seq        int
}

// Registry is a many-reader/single-writer store of tool descriptors plus
// the resource and prompt descriptors that share its namespace.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*entry
	resources map[string]*ResourceDescriptor
	prompts   map[string]*PromptDescriptor
	seq       int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		tools:     make(map[string]*entry),
		resources: make(map[string]*ResourceDescriptor),
		prompts:   make(map[string]*PromptDescriptor),
	}
}

// RegisterOptions controls how Register treats a name collision.
type RegisterOptions struct {
	Overwrite  bool
	Discovered bool
}

// Register adds d to the registry. With Overwrite=false, registering an
// existing name returns a CONFLICT-flavored error and leaves the existing
// descriptor untouched.
func (r *Registry) Register(d *Descriptor, opts RegisterOptions) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("descriptor must have a non-empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[d.Name]; exists && !opts.Overwrite {
		return fmt.Errorf("conflict: tool %q already registered", d.Name)
	}

	o := originStatic
	if opts.Discovered {
		o = originDiscovered
	}

	r.seq++
	r.tools[d.Name] = &entry{descriptor: d, origin: o, seq: r.seq}
	return nil
}

// Deregister removes name from the registry. It is idempotent.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Lookup returns the descriptor registered under name, or nil.
func (r *Registry) Lookup(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil
	}
	return e.descriptor
}

// ListTools returns every descriptor, static-registered first, then
// discovery-found, stable within each group.
func (r *Registry) ListTools() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statics := make([]*entry, 0, len(r.tools))
	discovered := make([]*entry, 0, len(r.tools))
	for _, e := range r.tools {
		if e.origin == originStatic {
			statics = append(statics, e)
		} else {
			discovered = append(discovered, e)
		}
	}
	sortBySeq(statics)
	sortBySeq(discovered)

	out := make([]*Descriptor, 0, len(statics)+len(discovered))
	for _, e := range statics {
		out = append(out, e.descriptor)
	}
	for _, e := range discovered {
		out = append(out, e.descriptor)
	}
	return out
}

func sortBySeq(entries []*entry) {
	// Small N (tens to low hundreds of tools); insertion sort keeps this
	// dependency-free and stable.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].seq < entries[j-1].seq; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// ListCategories returns the set of distinct categories across registered
// tools.
func (r *Registry) ListCategories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range r.tools {
		if e.descriptor.Category != "" {
			seen[e.descriptor.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// RegisterResource adds a resource descriptor, overwriting any existing one
// with the same URI.
func (r *Registry) RegisterResource(d *ResourceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[d.URI] = d
}

// LookupResource returns the resource descriptor for uri, or nil.
func (r *Registry) LookupResource(uri string) *ResourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources[uri]
}

// ListResources returns every registered resource descriptor.
func (r *Registry) ListResources() []*ResourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ResourceDescriptor, 0, len(r.resources))
	for _, d := range r.resources {
		out = append(out, d)
	}
	return out
}

// RegisterPrompt adds a prompt descriptor, overwriting any existing one with
// the same name.
func (r *Registry) RegisterPrompt(d *PromptDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[d.Name] = d
}

// LookupPrompt returns the prompt descriptor for name, or nil.
func (r *Registry) LookupPrompt(name string) *PromptDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prompts[name]
}

// ListPrompts returns every registered prompt descriptor.
func (r *Registry) ListPrompts() []*PromptDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*PromptDescriptor, 0, len(r.prompts))
	for _, d := range r.prompts {
		out = append(out, d)
	}
	return out
}

// ReplaceDiscovered atomically removes every previously discovered tool and
// installs newTools in their place, recording collisions with still-present
// static tools as CONFLICT in the returned slice (later registration wins,
// per the discovery engine's rule).
func (r *Registry) ReplaceDiscovered(newTools []*Descriptor) (conflicts []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, e := range r.tools {
		if e.origin == originDiscovered {
			delete(r.tools, name)
		}
	}

	for _, d := range newTools {
		if existing, ok := r.tools[d.Name]; ok && existing.origin == originStatic {
			conflicts = append(conflicts, d.Name)
		}
		r.seq++
		r.tools[d.Name] = &entry{descriptor: d, origin: originDiscovered, seq: r.seq}
	}
	return conflicts
}
