// Package notice keeps the admin-facing notices raised while a store page loads.
package notice

import (
	"html"
	"strings"
	"sync"
	"time"
)

// Notice is one admin warning.
type Notice struct {
	Key     string    `json:"key"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	AddedAt time.Time `json:"addedAt"`
}

// Board collects notices. Each key is registered at most once until Reset.
type Board struct {
	mu      sync.RWMutex
	notices []Notice
	now     func() time.Time
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{now: time.Now}
}

// Add registers an error-level notice under key. It reports false when the
// key is already on the board.
func (b *Board) Add(key, message string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notices {
		if n.Key == key {
			return false
		}
	}
	b.notices = append(b.notices, Notice{
		Key:     key,
		Level:   "error",
		Message: message,
		AddedAt: b.now(),
	})
	return true
}

// Reset clears the board, e.g. before settings are revalidated.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = nil
}

// List returns the notices in the order they were added.
func (b *Board) List() []Notice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

// Len returns the number of notices.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.notices)
}

// HTML renders the notices as admin markup.
func (b *Board) HTML() string {
	var sb strings.Builder
	for _, n := range b.List() {
		sb.WriteString(`<div class="`)
		sb.WriteString(html.EscapeString(n.Level))
		sb.WriteString(`"><p>`)
		sb.WriteString(html.EscapeString(n.Message))
		sb.WriteString("</p></div>")
	}
	return sb.String()
}
