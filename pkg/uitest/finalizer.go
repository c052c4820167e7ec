package uitest

import "sync"

// Finalizer records registrations instead of arming runtime hooks, so
// tests drive the finalization destroy path deterministically. It
// satisfies core.Finalizer.
type Finalizer struct {
	mu     sync.Mutex
	regs   map[int]registration
	lastID int
}

type registration struct {
	target any
	fn     func()
}

// NewFinalizer creates an empty recording finalizer.
func NewFinalizer() *Finalizer {
	return &Finalizer{regs: make(map[int]registration)}
}

// Register records the hook and returns its unregister function.
func (f *Finalizer) Register(target any, fn func()) func() {
	f.mu.Lock()
	f.lastID++
	id := f.lastID
	f.regs[id] = registration{target: target, fn: fn}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.regs, id)
		f.mu.Unlock()
	}
}

// Collect simulates the collector reclaiming target: every hook
// registered for it is removed and fired.
func (f *Finalizer) Collect(target any) {
	f.mu.Lock()
	var fire []func()
	for id, reg := range f.regs {
		if reg.target == target {
			fire = append(fire, reg.fn)
			delete(f.regs, id)
		}
	}
	f.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}

// Pending returns the number of live registrations.
func (f *Finalizer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regs)
}
