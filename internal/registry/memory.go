package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

// Memory is an in-memory Registry test double. Keys are case-insensitive
// like the real registry. Locations can be denied entirely or made
// read-only to simulate access denied.
type Memory struct {
	mu     sync.Mutex
	values map[string]uint32
	denied map[string]bool
	ro     map[string]bool
	writes int
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]uint32),
		denied: make(map[string]bool),
		ro:     make(map[string]bool),
	}
}

func memKey(scope catalog.Scope, path, name string) string {
	return strings.ToLower(location(scope, path, name))
}

// Set stores a value without counting it as a write.
func (m *Memory) Set(scope catalog.Scope, path, name string, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[memKey(scope, path, name)] = value
}

// Delete removes a value.
func (m *Memory) Delete(scope catalog.Scope, path, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, memKey(scope, path, name))
}

// Get returns a value and whether it exists.
func (m *Memory) Get(scope catalog.Scope, path, name string) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[memKey(scope, path, name)]
	return v, ok
}

// Deny makes reads and writes of a location fail with permission denied.
func (m *Memory) Deny(scope catalog.Scope, path, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[memKey(scope, path, name)] = true
}

// DenyWrite makes writes of a location fail with permission denied while
// reads still succeed, like a machine policy value without elevation.
func (m *Memory) DenyWrite(scope catalog.Scope, path, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ro[memKey(scope, path, name)] = true
}

// Writes returns how many successful WriteDWORD calls were made.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) ReadDWORD(scope catalog.Scope, path, name string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey(scope, path, name)
	if m.denied[k] {
		return 0, fmt.Errorf("%s: %w", location(scope, path, name), errdefs.ErrPermissionDenied)
	}
	v, ok := m.values[k]
	if !ok {
		return 0, fmt.Errorf("%s: %w", location(scope, path, name), errdefs.ErrNotFound)
	}
	return v, nil
}

func (m *Memory) WriteDWORD(scope catalog.Scope, path, name string, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey(scope, path, name)
	if m.denied[k] || m.ro[k] {
		return fmt.Errorf("%s: %w", location(scope, path, name), errdefs.ErrPermissionDenied)
	}
	m.values[k] = value
	m.writes++
	return nil
}
