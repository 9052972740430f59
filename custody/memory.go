package custody

import (
	"sync"

	"github.com/pkg/errors"
)

// MemoryLedger is an in-process Ledger for tests and tooling that run custody
// flows without a ledger substrate. Batches are independent resources: reads
// hand out copies, and a commit whose entry index no longer matches the
// stored history head fails with ErrCommitConflict and changes nothing.
type MemoryLedger struct {
	mu      sync.RWMutex
	batches map[string]Batch
	logs    map[string][]LogEntry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		batches: make(map[string]Batch),
		logs:    make(map[string][]LogEntry),
	}
}

func (m *MemoryLedger) Batch(address string) (Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[address]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "address %s", address)
	}
	return CloneBatch(b), nil
}

func (m *MemoryLedger) History(address string) ([]LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]LogEntry(nil), m.logs[address]...), nil
}

func (m *MemoryLedger) Commit(b Batch, entry LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	address := b.BatchAddress()
	if entry.BatchAddress != address {
		return errors.Wrapf(ErrCommitConflict,
			"entry addresses %s, batch is %s", entry.BatchAddress, address)
	}
	if head := uint64(len(m.logs[address])); entry.Index != head {
		return errors.Wrapf(ErrCommitConflict,
			"entry index %d, history head is %d", entry.Index, head)
	}
	m.batches[address] = CloneBatch(b)
	m.logs[address] = append(m.logs[address], entry)
	return nil
}

// TamperEntry overwrites a stored log entry in place, bypassing every
// validity check. It exists so integrity verification can be exercised
// against a corrupted history.
func (m *MemoryLedger) TamperEntry(address string, index int, mutate func(*LogEntry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entries, ok := m.logs[address]; ok && index >= 0 && index < len(entries) {
		mutate(&entries[index])
	}
}

// StaticRegistry is a map-backed RoleRegistry for tests and tooling.
type StaticRegistry struct {
	mu     sync.RWMutex
	grants map[string]map[Role]bool
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{grants: make(map[string]map[Role]bool)}
}

func (r *StaticRegistry) Grant(principal string, roles ...Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	held, ok := r.grants[principal]
	if !ok {
		held = make(map[Role]bool)
		r.grants[principal] = held
	}
	for _, role := range roles {
		held[role] = true
	}
}

func (r *StaticRegistry) Revoke(principal string, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants[principal], role)
}

func (r *StaticRegistry) HasRole(principal string, role Role) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grants[principal][role], nil
}
