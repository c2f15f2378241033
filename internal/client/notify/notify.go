// Package notify carries storage-change notifications between independent
// contexts (terminals, processes or hosts) that share a local mirror.
// A context never receives notifications for its own writes.
package notify

import "sync"

// Change describes one storage mutation seen by another context.
type Change struct {
	Key      string
	NewValue []byte
	Removed  bool
	Origin   string
}

// Notifier broadcasts local changes and delivers foreign ones.
type Notifier interface {
	// Broadcast tells other contexts that key changed. Fire-and-forget.
	Broadcast(key string)
	// Record publishes a local storage write. value is nil for removals.
	Record(key string, value []byte)
	// Subscribe registers fn for foreign changes and returns its cancel func.
	Subscribe(fn func(Change)) (cancel func())
}

// listeners is the subscriber list shared by every Notifier implementation.
type listeners struct {
	mu   sync.RWMutex
	next int
	fns  map[int]func(Change)
}

func (l *listeners) add(fn func(Change)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(Change))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) emit(c Change) {
	l.mu.RLock()
	fns := make([]func(Change), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

func (l *listeners) count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fns)
}
