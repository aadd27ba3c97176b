package surface

import (
	"fmt"
	"sync"

	"grabarr/internal/domain/consts"
)

// Status is the single persistent status line.
//
// Set must be called from the interactive goroutine. Get may be called from anywhere.
type Status struct {
	mu       sync.RWMutex
	text     string
	onChange func(string)
}

// NewStatus returns a status line reading "Ready".
func NewStatus(onChange func(string)) *Status {
	return &Status{text: consts.StatusReady, onChange: onChange}
}

// Set replaces the status text.
func (s *Status) Set(text string) {
	s.mu.Lock()
	changed := s.text != text
	s.text = text
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(text)
	}
}

// Setf formats and sets the status text.
func (s *Status) Setf(format string, args ...any) {
	s.Set(fmt.Sprintf(format, args...))
}

// Get returns the current status text.
func (s *Status) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}
