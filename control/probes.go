// File: control/probes.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Named probes reporting component state for logs and debugging.

package control

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
)

// Probes holds registered probe functions.
type Probes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewProbes creates an empty registry.
func NewProbes() *Probes {
	return &Probes{probes: make(map[string]func() any)}
}

// Register adds or replaces a named probe.
func (p *Probes) Register(name string, fn func() any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[name] = fn
}

// Unregister removes a probe.
func (p *Probes) Unregister(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.probes, name)
}

// Snapshot returns the output of all probes.
func (p *Probes) Snapshot() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.probes))
	for k, fn := range p.probes {
		out[k] = fn()
	}
	return out
}

// LogValue renders the snapshot as a group sorted by probe name.
func (p *Probes) LogValue() slog.Value {
	snap := p.Snapshot()
	names := make([]string, 0, len(snap))
	for k := range snap {
		names = append(names, k)
	}
	sort.Strings(names)
	attrs := make([]slog.Attr, 0, len(names))
	for _, k := range names {
		attrs = append(attrs, slog.Any(k, snap[k]))
	}
	return slog.GroupValue(attrs...)
}

// RegisterRuntimeProbes adds process-level probes.
func RegisterRuntimeProbes(p *Probes) {
	p.Register("runtime.cpus", func() any { return runtime.NumCPU() })
	p.Register("runtime.goroutines", func() any { return runtime.NumGoroutine() })
}
