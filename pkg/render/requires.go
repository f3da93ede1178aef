package render

import (
	"encoding/json"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"
)

// Module describes a browser module and the loader modules it depends on.
type Module struct {
	Name     string   `json:"name"`
	FullPath string   `json:"fullpath"`
	Requires []string `json:"requires,omitempty"`
}

// InitCall is a deferred call of a browser-side init function with
// server-built arguments.
type InitCall struct {
	Function   string
	Args       []any
	OnDOMReady bool
	Module     Module
}

// ModuleLoader is the hook fields use to wire up browser widgets.
type ModuleLoader interface {
	JSInitCall(function string, args []any, onDOMReady bool, module Module)
}

// Requires collects init calls during a page render and emits the script
// markup once the page is assembled. It is safe for concurrent use.
type Requires struct {
	mu      sync.Mutex
	baseURL string
	modules []Module
	calls   []InitCall
}

var _ ModuleLoader = (*Requires)(nil)

// NewRequires creates a collector. baseURL prefixes module paths.
func NewRequires(baseURL string) *Requires {
	return &Requires{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (r *Requires) JSInitCall(function string, args []any, onDOMReady bool, module Module) {
	function = strings.TrimSpace(function)
	if r == nil || function == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	module.Requires = slices.Clone(module.Requires)
	if module.Name != "" && !slices.ContainsFunc(r.modules, func(m Module) bool { return m.Name == module.Name }) {
		r.modules = append(r.modules, module)
	}
	r.calls = append(r.calls, InitCall{
		Function:   function,
		Args:       slices.Clone(args),
		OnDOMReady: onDOMReady,
		Module:     module,
	})
}

// Calls returns a copy of the registered init calls in registration order.
func (r *Requires) Calls() []InitCall {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Modules returns the distinct modules referenced by init calls.
func (r *Requires) Modules() []Module {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.modules)
}

// HTML renders script tags loading every module followed by one inline
// script per init call.
func (r *Requires) HTML() (string, error) {
	if r == nil {
		return "", nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var builder strings.Builder
	for _, module := range r.modules {
		if module.FullPath == "" {
			continue
		}
		builder.WriteString(`<script src="`)
		builder.WriteString(html.EscapeString(r.baseURL + module.FullPath))
		builder.WriteString(`"></script>`)
		builder.WriteByte('\n')
	}

	for _, call := range r.calls {
		args := make([]string, 0, len(call.Args)+1)
		args = append(args, "Y")
		for idx, arg := range call.Args {
			payload, err := json.Marshal(arg)
			if err != nil {
				return "", fmt.Errorf("render: encode argument %d of %s: %w", idx, call.Function, err)
			}
			args = append(args, string(payload))
		}
		deps, err := json.Marshal(call.Module.Requires)
		if err != nil {
			return "", fmt.Errorf("render: encode requires of %s: %w", call.Function, err)
		}
		invoke := call.Function + "(" + strings.Join(args, ", ") + ");"
		if call.OnDOMReady {
			invoke = `Y.on("domready", function() { ` + invoke + ` });`
		}

		builder.WriteString("<script>\n")
		builder.WriteString("YUI().use(")
		if len(call.Module.Requires) > 0 {
			builder.WriteString(strings.Trim(string(deps), "[]"))
			builder.WriteString(", ")
		}
		builder.WriteString("function(Y) {\n    ")
		builder.WriteString(invoke)
		builder.WriteString("\n});\n</script>\n")
	}
	return builder.String(), nil
}
