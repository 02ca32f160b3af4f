package memory

import "github.com/cockpit-vm/cockpitvm/internal/vmerr"

// Manager is the direct, reference-based wrapper over a Context. Handlers
// in the execution engine call Manager methods directly; there is no
// function-pointer table over an opaque context, since that indirection
// inhibits inlining and complicates ownership for no benefit here.
type Manager struct {
	ctx *Context
}

// NewManager wraps ctx. ctx must outlive the Manager.
func NewManager(ctx *Context) *Manager {
	return &Manager{ctx: ctx}
}

// StoreGlobal writes v to global i, validating bounds and advancing
// GlobalHigh when i is the new high-water mark.
func (m *Manager) StoreGlobal(i int, v int32) error {
	if i < 0 || i >= GlobalCount {
		return vmerr.New(vmerr.MemoryBounds)
	}
	m.ctx.Globals[i] = v
	if i+1 > m.ctx.GlobalHigh {
		m.ctx.GlobalHigh = i + 1
	}
	return nil
}

// LoadGlobal reads global i.
func (m *Manager) LoadGlobal(i int) (int32, error) {
	if i < 0 || i >= GlobalCount {
		return 0, vmerr.New(vmerr.MemoryBounds)
	}
	return m.ctx.Globals[i], nil
}

// GlobalHigh reports the highest global index ever written plus one.
func (m *Manager) GlobalHigh() int {
	return m.ctx.GlobalHigh
}

// CreateArray activates array id. size is checked against ArraySize but
// not recorded: element access is bounded by ArraySize, not by size.
// Re-creating an already active array is permitted and clears its contents.
func (m *Manager) CreateArray(id int, size int) error {
	if id < 0 || id >= ArrayCount || size < 0 || size > ArraySize {
		return vmerr.New(vmerr.MemoryBounds)
	}
	for i := 0; i < ArraySize; i++ {
		m.ctx.Arrays[id][i] = 0
	}
	m.ctx.ArrayActive[id] = true
	return nil
}

// StoreArrayElement writes v to arrays[id][idx].
func (m *Manager) StoreArrayElement(id, idx int, v int32) error {
	if err := m.checkArray(id, idx); err != nil {
		return err
	}
	m.ctx.Arrays[id][idx] = v
	return nil
}

// LoadArrayElement reads arrays[id][idx].
func (m *Manager) LoadArrayElement(id, idx int) (int32, error) {
	if err := m.checkArray(id, idx); err != nil {
		return 0, err
	}
	return m.ctx.Arrays[id][idx], nil
}

func (m *Manager) checkArray(id, idx int) error {
	if id < 0 || id >= ArrayCount || !m.ctx.ArrayActive[id] || idx < 0 || idx >= ArraySize {
		return vmerr.New(vmerr.MemoryBounds)
	}
	return nil
}

// Reset zeros the underlying context.
func (m *Manager) Reset() {
	m.ctx.Reset()
}

// ValidateIntegrity performs a cheap invariant check for tests:
// GlobalHigh must stay within bounds and every active
// array flag must refer to a real slot (always true by construction, but
// checked explicitly so a future refactor that breaks the invariant fails
// loudly).
func (m *Manager) ValidateIntegrity() bool {
	if m.ctx.GlobalHigh < 0 || m.ctx.GlobalHigh > GlobalCount {
		return false
	}
	return len(m.ctx.ArrayActive) == ArrayCount
}
