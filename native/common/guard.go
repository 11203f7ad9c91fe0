package common

import (
	"errors"
	"sort"
	"sync"
)

// ErrModulePaused is returned when a guarded operation targets a paused
// module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused when the module is paused. A nil view or
// empty module name never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is a concurrency-safe PauseView backed by an in-memory toggle set.
type PauseSet struct {
	mu     sync.RWMutex
	paused map[string]struct{}
}

// NewPauseSet returns an empty pause set.
func NewPauseSet() *PauseSet {
	return &PauseSet{paused: make(map[string]struct{})}
}

// IsPaused reports whether the module toggle is set.
func (p *PauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.paused[module]
	return ok
}

// SetPaused flips the toggle for the module.
func (p *PauseSet) SetPaused(module string, paused bool) {
	if p == nil || module == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if paused {
		p.paused[module] = struct{}{}
	} else {
		delete(p.paused, module)
	}
}

// Paused lists the currently paused modules in sorted order.
func (p *PauseSet) Paused() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	modules := make([]string, 0, len(p.paused))
	for module := range p.paused {
		modules = append(modules, module)
	}
	sort.Strings(modules)
	return modules
}
