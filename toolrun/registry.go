package toolrun

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps tool names to handlers. It is populated at startup and
// read by the runtime on every dispatch.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the handler but
// keeps its position in the prompt listing.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Prompt renders the system prompt section describing the call grammar
// and every registered tool, for inclusion in worker prompts.
func (r *Registry) Prompt() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	b.WriteString("You can act through tools. To use one, write on its own line:\n")
	b.WriteString("TOOL[tool_name](arg1, \"arg two\", ...)\n\n")
	b.WriteString("Available tools:\n")
	for _, name := range r.order {
		t := r.tools[name]
		params := t.Params()
		names := make([]string, len(params))
		for i, p := range params {
			names[i] = p.Name
		}
		fmt.Fprintf(&b, "  TOOL[%s](%s)  - %s\n", name, strings.Join(names, ", "), t.Description())
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- You may use several tools in one response.\n")
	b.WriteString("- Tool results are fed back to you so you can chain actions.\n")
	b.WriteString("- Quote arguments that contain commas or parentheses.\n")
	return b.String()
}
