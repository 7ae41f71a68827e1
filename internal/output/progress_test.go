package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgress_NonTTYPrintsOnlyOnFinish(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(3, "Disabling features")
	p.SetWriter(buf)

	p.Step("Copilot")
	p.Step("Recall")
	if buf.Len() != 0 {
		t.Errorf("non-TTY progress should not draw intermediate steps, got %q", buf.String())
	}

	p.Finish()
	out := buf.String()
	if !strings.Contains(out, "3/3 Disabling features") {
		t.Errorf("Finish() output = %q, want it to contain %q", out, "3/3 Disabling features")
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("Finish() should print exactly one line, got %q", out)
	}
}

func TestProgress_StepDoesNotExceedTotal(t *testing.T) {
	p := NewProgress(1, "x")
	p.SetWriter(&bytes.Buffer{})
	p.Step("a")
	p.Step("b")
	if p.current != 1 {
		t.Errorf("current = %d, want 1", p.current)
	}
}

func TestProgress_Bar(t *testing.T) {
	p := NewProgress(10, "x")
	p.width = 10

	p.current = 5
	if got, want := p.bar(), "[====>     ]"; got != want {
		t.Errorf("bar() at 5/10 = %q, want %q", got, want)
	}

	p.current = 0
	if got, want := p.bar(), "[          ]"; got != want {
		t.Errorf("bar() at 0/10 = %q, want %q", got, want)
	}

	empty := NewProgress(0, "x")
	empty.width = 4
	if got, want := empty.bar(), "[    ]"; got != want {
		t.Errorf("bar() with zero total = %q, want %q", got, want)
	}
}

func TestSpinner_NonTTY(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Querying installed packages")
	s.SetWriter(buf)

	s.Start()
	s.Start()
	s.StopWithMessage("done")
	s.Stop()

	if got, want := buf.String(), "Querying installed packages...\ndone\n"; got != want {
		t.Errorf("spinner output = %q, want %q", got, want)
	}
}

func TestSpinner_LineWithElapsed(t *testing.T) {
	s := NewSpinner("Working").ShowElapsed()
	s.SetWriter(&bytes.Buffer{})
	s.Start()
	defer s.Stop()

	s.mu.Lock()
	line := s.line()
	s.mu.Unlock()
	if !strings.HasPrefix(line, "Working (") || !strings.HasSuffix(line, "s elapsed)") {
		t.Errorf("line() = %q, want elapsed suffix", line)
	}
}
