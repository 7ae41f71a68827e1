package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY reports whether w is a terminal. Writers without an Fd
// method, such as *bytes.Buffer, are not.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Progress counts through a fixed number of steps, such as disabling every
// feature. Example: [=========>          ] 6/15 Disabling features
type Progress struct {
	mu          sync.Mutex
	total       int
	current     int
	width       int
	description string
	writer      io.Writer
}

// NewProgress creates a progress bar writing to stdout.
func NewProgress(total int, description string) *Progress {
	return &Progress{
		total:       total,
		width:       30,
		description: description,
		writer:      os.Stdout,
	}
}

// SetWriter sets the output writer.
func (p *Progress) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Step advances by one and names the item being worked on.
func (p *Progress) Step(item string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < p.total {
		p.current++
	}
	p.render(item)
}

// Finish completes the bar. On a terminal it ends the line; elsewhere it
// prints the final state once.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	if writerIsTTY(p.writer) {
		p.render("")
		fmt.Fprintln(p.writer)
		return
	}
	fmt.Fprintf(p.writer, "%s %d/%d %s\n", p.bar(), p.current, p.total, p.description)
}

func (p *Progress) bar() string {
	filled := 0
	if p.total > 0 {
		filled = p.current * p.width / p.total
	}
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			b.WriteString("=")
		case i == filled-1:
			b.WriteString(">")
		default:
			b.WriteString(" ")
		}
	}
	b.WriteString("]")
	return b.String()
}

// render must be called with the lock held. Non-terminal writers only see
// the line written by Finish.
func (p *Progress) render(item string) {
	if !writerIsTTY(p.writer) {
		return
	}
	line := fmt.Sprintf("%s %d/%d %s", p.bar(), p.current, p.total, p.description)
	if item != "" {
		line += ": " + item
	}
	fmt.Fprintf(p.writer, "\r\033[K%s", line)
}

// Spinner shows that a slow query, such as a PowerShell package listing,
// is still running.
type Spinner struct {
	mu       sync.Mutex
	message  string
	frames   []string
	writer   io.Writer
	running  bool
	started  time.Time
	elapsed  bool
	done     chan struct{}
	finished chan struct{}
}

// NewSpinner creates a spinner writing to stdout. It does nothing until
// Start.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
		writer:  os.Stdout,
	}
}

// ShowElapsed appends "(Ns elapsed)" to the message. Call before Start.
func (s *Spinner) ShowElapsed() *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = true
	return s
}

// SetWriter sets the output writer.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. On a non-terminal writer the message is
// printed once and no goroutine is started.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.done = make(chan struct{})
	s.finished = make(chan struct{})
	go s.spin()
}

func (s *Spinner) spin() {
	defer close(s.finished)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s", s.frames[i%len(s.frames)], s.line())
			s.mu.Unlock()
		}
	}
}

// line must be called with the lock held.
func (s *Spinner) line() string {
	if !s.elapsed {
		return s.message
	}
	return fmt.Sprintf("%s (%ds elapsed)", s.message, int(time.Since(s.started).Seconds()))
}

// UpdateMessage replaces the message while running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done, finished := s.done, s.finished
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-finished

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.writer, "\r\033[K")
}

// StopWithMessage stops the spinner and prints message on its own line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
