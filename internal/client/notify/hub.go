package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Hub connects contexts living in one process. Each context takes its own
// Tab; changes published through a tab reach every other tab. Delivery
// happens synchronously on the publisher's goroutine.
type Hub struct {
	mu   sync.RWMutex
	tabs map[string]*Tab
}

func NewHub() *Hub {
	return &Hub{tabs: make(map[string]*Tab)}
}

// Tab returns a new context attached to the hub.
func (h *Hub) Tab() *Tab {
	t := &Tab{hub: h, id: uuid.NewString()}
	h.mu.Lock()
	h.tabs[t.id] = t
	h.mu.Unlock()
	return t
}

func (h *Hub) publish(c Change) {
	h.mu.RLock()
	targets := make([]*Tab, 0, len(h.tabs))
	for id, t := range h.tabs {
		if id != c.Origin {
			targets = append(targets, t)
		}
	}
	h.mu.RUnlock()
	for _, t := range targets {
		t.subs.emit(c)
	}
}

// Tab is one context's view of a Hub.
type Tab struct {
	hub  *Hub
	id   string
	subs listeners
}

func (t *Tab) ID() string { return t.id }

func (t *Tab) Broadcast(key string) {
	t.hub.publish(Change{Key: key, Origin: t.id})
}

func (t *Tab) Record(key string, value []byte) {
	c := Change{Key: key, Origin: t.id, Removed: value == nil}
	if value != nil {
		c.NewValue = append([]byte(nil), value...)
	}
	t.hub.publish(c)
}

func (t *Tab) Subscribe(fn func(Change)) func() {
	return t.subs.add(fn)
}

// Close detaches the tab from its hub.
func (t *Tab) Close() {
	t.hub.mu.Lock()
	delete(t.hub.tabs, t.id)
	t.hub.mu.Unlock()
}
