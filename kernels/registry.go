package kernels

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Table is a labeled matrix shown by the demos; vectors are 1 x n.
type Table struct {
	Label string
	Matrix
}

// Result is one demo run: what went in, what came back and what the host expects.
type Result struct {
	Demo     string
	Inputs   []Table
	Output   Table
	Expected Table
}

// Verify compares the device output with the host reference.
func (r *Result) Verify() error {
	got, want := r.Output, r.Expected
	if got.Rows != want.Rows || got.Cols != want.Cols || len(got.Data) != len(want.Data) {
		return errors.Errorf("%s: output is %dx%d, expected %dx%d", r.Demo, got.Rows, got.Cols, want.Rows, want.Cols)
	}
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			return errors.Errorf("%s: element %d is %d, expected %d", r.Demo, i, got.Data[i], want.Data[i])
		}
	}
	return nil
}

// Runner runs a demo on a dispatcher.
type Runner func(ctx context.Context, d Dispatcher) (*Result, error)

// Demo is a named, self-contained example with fixed inputs.
type Demo struct {
	Name        string
	Description string
	Run         Runner
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Demo{}
)

// Register adds a demo, replacing any demo with the same name.
func Register(d Demo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name] = d
}

// Names lists registered demos in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Lookup finds a demo by name.
func Lookup(name string) (Demo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Run runs the named demo.
func Run(ctx context.Context, d Dispatcher, name string) (*Result, error) {
	demo, ok := Lookup(name)
	if !ok {
		return nil, errors.Errorf("unknown demo: %s", name)
	}
	return demo.Run(ctx, d)
}
