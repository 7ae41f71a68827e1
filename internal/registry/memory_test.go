package registry

import (
	"testing"

	"github.com/blackwell-systems/aiprune/internal/catalog"
	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

func TestMemoryReadMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.ReadDWORD(catalog.ScopeUser, `SOFTWARE\Test`, "Value")
	if !errdefs.IsNotFound(err) {
		t.Fatalf("ReadDWORD() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryWriteThenRead(t *testing.T) {
	m := NewMemory()
	if err := m.WriteDWORD(catalog.ScopeMachine, `SOFTWARE\Test`, "Value", 7); err != nil {
		t.Fatalf("WriteDWORD() error = %v", err)
	}

	got, err := m.ReadDWORD(catalog.ScopeMachine, `software\test`, "value")
	if err != nil {
		t.Fatalf("ReadDWORD() error = %v", err)
	}
	if got != 7 {
		t.Errorf("ReadDWORD() = %d, want 7", got)
	}
	if m.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", m.Writes())
	}

	if _, err := m.ReadDWORD(catalog.ScopeUser, `SOFTWARE\Test`, "Value"); !errdefs.IsNotFound(err) {
		t.Errorf("value leaked across scopes: err = %v", err)
	}
}

func TestMemoryDeny(t *testing.T) {
	m := NewMemory()
	m.Set(catalog.ScopeMachine, `SOFTWARE\Locked`, "V", 1)
	m.Deny(catalog.ScopeMachine, `SOFTWARE\Locked`, "V")

	if _, err := m.ReadDWORD(catalog.ScopeMachine, `SOFTWARE\Locked`, "V"); !errdefs.IsPermissionDenied(err) {
		t.Errorf("ReadDWORD() error = %v, want ErrPermissionDenied", err)
	}
	if err := m.WriteDWORD(catalog.ScopeMachine, `SOFTWARE\Locked`, "V", 0); !errdefs.IsPermissionDenied(err) {
		t.Errorf("WriteDWORD() error = %v, want ErrPermissionDenied", err)
	}
	if m.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", m.Writes())
	}
}

func TestMemoryDenyWrite(t *testing.T) {
	m := NewMemory()
	m.Set(catalog.ScopeMachine, `SOFTWARE\Test`, "Value", 0)
	m.DenyWrite(catalog.ScopeMachine, `SOFTWARE\Test`, "Value")

	if err := m.WriteDWORD(catalog.ScopeMachine, `SOFTWARE\Test`, "Value", 1); !errdefs.IsPermissionDenied(err) {
		t.Fatalf("WriteDWORD() error = %v, want ErrPermissionDenied", err)
	}
	got, err := m.ReadDWORD(catalog.ScopeMachine, `SOFTWARE\Test`, "Value")
	if err != nil {
		t.Fatalf("ReadDWORD() error = %v", err)
	}
	if got != 0 {
		t.Errorf("ReadDWORD() = %d, want 0", got)
	}
}
