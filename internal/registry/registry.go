package registry

import (
	"sync"
	"time"
)

// Handle is a running capture process owned by the registry.
type Handle interface {
	// Alive reports whether the process is still running without blocking.
	Alive() bool
	// Terminate asks the process to shut down gracefully.
	Terminate() error
	// Wait blocks until the process exits or the timeout elapses, after
	// which the process is killed.
	Wait(timeout time.Duration) error
	// OutputPath is the file the capture writes to.
	OutputPath() string
	// StartTime is the capture start in unix milliseconds.
	StartTime() int64
	// StderrTail is the most recent diagnostic output of the process.
	StderrTail() string
}

// Registry tracks in-flight captures keyed by channel URL. It is the
// in-memory authority on which resources have a live process attached;
// durable recording state lives in the store.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Handle
}

func New() *Registry {
	return &Registry{tasks: make(map[string]Handle)}
}

// Insert registers a handle for url. It returns false and leaves the
// registry untouched when url already has a handle.
func (r *Registry) Insert(url string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[url]; ok {
		return false
	}
	r.tasks[url] = h
	return true
}

// Remove drops and returns the handle for url.
func (r *Registry) Remove(url string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.tasks[url]
	if ok {
		delete(r.tasks, url)
	}
	return h, ok
}

// Contains reports whether url has a registered handle.
func (r *Registry) Contains(url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[url]
	return ok
}

// URLs returns the registered channel URLs.
func (r *Registry) URLs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	urls := make([]string, 0, len(r.tasks))
	for u := range r.tasks {
		urls = append(urls, u)
	}
	return urls
}

// Snapshot returns a copy of the current url to handle mapping so
// callers can iterate without holding the registry lock.
func (r *Registry) Snapshot() map[string]Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Handle, len(r.tasks))
	for u, h := range r.tasks {
		out[u] = h
	}
	return out
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
