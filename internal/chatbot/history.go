package chatbot

import (
	"sync"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultHistorySize is how many turns are kept per user.
const DefaultHistorySize = 10

// History keeps a bounded ring buffer of turns per user id. It is owned by the
// caller and injected where conversational context is needed.
type History struct {
	mu       sync.RWMutex
	capacity int
	rings    map[string]*ring
}

type ring struct {
	turns []Turn
	start int
	size  int
}

// NewHistory creates a history keeping at most capacity turns per user.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		capacity: capacity,
		rings:    make(map[string]*ring),
	}
}

// Append records turns for userID, overwriting the oldest once full.
func (h *History) Append(userID string, turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rings[userID]
	if !ok {
		r = &ring{turns: make([]Turn, h.capacity)}
		h.rings[userID] = r
	}
	for _, t := range turns {
		idx := (r.start + r.size) % h.capacity
		r.turns[idx] = t
		if r.size < h.capacity {
			r.size++
		} else {
			r.start = (r.start + 1) % h.capacity
		}
	}
}

// Recent returns up to n of the newest turns for userID, oldest first.
// n <= 0 returns everything kept.
func (h *History) Recent(userID string, n int) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rings[userID]
	if !ok {
		return []Turn{}
	}
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]Turn, 0, n)
	for i := r.size - n; i < r.size; i++ {
		out = append(out, r.turns[(r.start+i)%h.capacity])
	}
	return out
}

// Clear drops the conversation for userID.
func (h *History) Clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rings, userID)
}

// HistoryStats summarises what the history currently holds.
type HistoryStats struct {
	ActiveConversations int `json:"activeConversations"`
	TotalMessages       int `json:"totalMessages"`
}

// Stats counts conversations and kept turns.
func (h *History) Stats() HistoryStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := HistoryStats{ActiveConversations: len(h.rings)}
	for _, r := range h.rings {
		s.TotalMessages += r.size
	}
	return s
}
