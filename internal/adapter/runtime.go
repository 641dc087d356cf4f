package adapter

import (
	"fmt"
	"sort"

	"lola/pkg/adapterapi"
)

// Runtime holds the closed set of adapters, selected by explicit
// dispatch. The capability set is fixed; there is no plugin discovery.
type Runtime struct {
	adapters map[string]adapterapi.Adapter
}

func NewRuntime() *Runtime {
	r := &Runtime{adapters: map[string]adapterapi.Adapter{}}
	for _, a := range []adapterapi.Adapter{claudeAdapter{}, cursorAdapter{}, geminiAdapter{}} {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Runtime) Get(name string) (adapterapi.Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("ADP_NOT_SUPPORTED: unknown assistant %q", name)
	}
	return a, nil
}

func (r *Runtime) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
