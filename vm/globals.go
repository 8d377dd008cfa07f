package vm

import (
	"sync"

	"github.com/krehermann/rigvm/value"
)

// Globals is the per-VM name table: a string-keyed map of Values shared for
// the lifetime of a VM instance and carried across Execute/Call invocations.
type Globals struct {
	lock sync.RWMutex
	data map[string]value.Value
}

// NewGlobals constructs an empty global name table.
func NewGlobals() *Globals {
	return &Globals{data: make(map[string]value.Value)}
}

// Set inserts or overwrites name's binding.
func (g *Globals) Set(name string, v value.Value) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.data[name] = v
}

// Get looks up name, reporting false if absent.
func (g *Globals) Get(name string) (value.Value, bool) {
	g.lock.RLock()
	defer g.lock.RUnlock()
	v, ok := g.data[name]
	return v, ok
}
