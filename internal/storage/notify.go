// ABOUTME: Per-table change notification for live repository streams.
// ABOUTME: Signals coalesce so slow subscribers never block writers.
package storage

import "sync"

type notifier struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan struct{}
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]chan struct{})}
}

func (n *notifier) subscribe(table string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	id := n.next
	n.next++
	if n.subs[table] == nil {
		n.subs[table] = make(map[int]chan struct{})
	}
	n.subs[table][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[table], id)
			n.mu.Unlock()
		})
	}
}

func (n *notifier) publish(table string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[table] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
