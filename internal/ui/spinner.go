package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner animates a status line while something is awaited.
type Spinner struct {
	out      io.Writer
	chars    []string
	delay    time.Duration
	suffix   string
	stopChan chan struct{}
	wg       sync.WaitGroup
	active   bool
	mu       sync.Mutex
}

// NewSpinner writes to out, typically stderr.
func NewSpinner(out io.Writer, suffix string) *Spinner {
	return &Spinner{
		out:    out,
		chars:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay:  100 * time.Millisecond,
		suffix: suffix,
	}
}

// SetSuffix changes the text next to the spinner.
func (s *Spinner) SetSuffix(suffix string) {
	s.mu.Lock()
	s.suffix = suffix
	s.mu.Unlock()
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.delay)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(s.chars) {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				suffix := s.suffix
				s.mu.Unlock()
				fmt.Fprintf(s.out, "\r%s %s", StylePrimary.Render(s.chars[i]), suffix)
			}
		}
	}()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(s.out, "\r\033[K")
}
