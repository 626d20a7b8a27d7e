package crawlers

import "sync"

// Frontier is a crawler's pending URL queue. It behaves like a set: a URL
// currently queued is never queued twice. Pop order is FIFO.
type Frontier struct {
	mu     sync.Mutex
	order  []string
	queued map[string]struct{}
}

func NewFrontier() *Frontier {
	return &Frontier{queued: make(map[string]struct{})}
}

// Add queues a URL unless it is already pending. Reports whether the URL
// was added.
func (f *Frontier) Add(url string) bool {
	if url == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.queued[url]; ok {
		return false
	}
	f.queued[url] = struct{}{}
	f.order = append(f.order, url)
	return true
}

// Pop removes and returns the oldest pending URL, or "" when empty.
func (f *Frontier) Pop() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.order) == 0 {
		return ""
	}
	url := f.order[0]
	f.order = f.order[1:]
	delete(f.queued, url)
	return url
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}
