package processor

import "sort"

// Registry maps event-type tags to processors. It is filled during startup
// and read-only afterwards, so Resolve takes no lock. Register must not be
// called concurrently with Resolve.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register binds every tag to p. A tag that is already bound is silently
// re-bound to p.
func (r *Registry) Register(tags []string, p Processor) {
	for _, tag := range tags {
		r.processors[tag] = p
	}
}

// Add registers p under the tags it claims.
func (r *Registry) Add(p Processor) {
	r.Register(p.ReactsTo(), p)
}

// Resolve returns the processor bound to tag.
func (r *Registry) Resolve(tag string) (Processor, bool) {
	p, ok := r.processors[tag]
	return p, ok
}

// Tags returns the bound tags in sorted order.
func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.processors))
	for tag := range r.processors {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of bound tags.
func (r *Registry) Len() int { return len(r.processors) }
