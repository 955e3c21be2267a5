package render

import (
	"fmt"
	"io"
	"sync"
)

// Banner is the single inline error indicator. A new message replaces the
// previous one, so at most one error is ever visible.
type Banner struct {
	mu      sync.RWMutex
	message string
}

func NewBanner() *Banner { return &Banner{} }

func (b *Banner) Show(msg string) {
	b.mu.Lock()
	b.message = msg
	b.mu.Unlock()
}

func (b *Banner) Dismiss() {
	b.mu.Lock()
	b.message = ""
	b.mu.Unlock()
}

// Message returns the visible message; ok is false when nothing is shown.
func (b *Banner) Message() (msg string, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.message, b.message != ""
}

func (b *Banner) Draw(w io.Writer) error {
	msg, ok := b.Message()
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, "[!] %s\n", msg)
	return err
}
