package discoverable

// Registry maps discoverable type names to their checkers.
// It is immutable once Load returns.
type Registry struct {
	names    []string
	checkers map[string]Checker
	services []string
}

// Names returns the loaded type names in sorted order
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the checker for name
func (r *Registry) Get(name string) (Checker, bool) {
	c, ok := r.checkers[name]
	return c, ok
}

// Len returns the number of loaded types
func (r *Registry) Len() int {
	return len(r.names)
}

// MDNSServices returns the union of mDNS service types the loaded
// checkers need, sorted
func (r *Registry) MDNSServices() []string {
	return append([]string(nil), r.services...)
}

// Discovered returns, in name order, every type whose checker currently
// reports a match
func (r *Registry) Discovered() []string {
	found := make([]string, 0, len(r.names))
	for _, name := range r.names {
		if r.checkers[name].IsDiscovered() {
			found = append(found, name)
		}
	}
	return found
}
