package session

import (
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

// MemHistory is an in-process History.
type MemHistory struct {
	mu      sync.Mutex
	entries []string
}

// NewMemHistory starts with fragment as the current entry.
func NewMemHistory(fragment string) *MemHistory {
	return &MemHistory{entries: []string{fragment}}
}

func (h *MemHistory) Fragment() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

func (h *MemHistory) Push(fragment string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, fragment)
}

func (h *MemHistory) Replace(fragment string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		h.entries = append(h.entries, fragment)
		return
	}
	h.entries[len(h.entries)-1] = fragment
}

// Back drops the current entry, like the browser back button. It
// reports false when there is nothing to go back to.
func (h *MemHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) < 2 {
		return false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return true
}

// ErrClipboardUnsupported is returned when no system clipboard is reachable.
var ErrClipboardUnsupported = errors.New("no clipboard utility available")

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}
