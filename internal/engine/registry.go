package engine

import (
	"sort"
	"sync"
)

// Registry maps normalized command and wizard-step names to commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register inserts a command, replacing any previous one under the same
// name. Replacement is allowed so a contextual step can swap a command's
// behavior without changing its key.
func (r *Registry) Register(cmd *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.Name] = cmd
}

// Lookup resolves a normalized name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// IsInternal reports whether name is a registered hidden wizard step.
// Unregistered names count as public so stack unwinding stays conservative.
func (r *Registry) IsInternal(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return ok && cmd.Internal
}

// Public returns the user-facing commands sorted by name, for help output.
func (r *Registry) Public() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Command
	for _, cmd := range r.commands {
		if !cmd.Internal {
			out = append(out, cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
