package engine

import "sync"

// DomainMemory remembers which engine last succeeded for each host so that
// later pages of the same run go straight to it. It lives for one run.
type DomainMemory struct {
	mu    sync.Mutex
	store map[string]string // host -> engine name
}

// NewDomainMemory creates an empty DomainMemory.
func NewDomainMemory() *DomainMemory {
	return &DomainMemory{store: make(map[string]string)}
}

// Get returns the remembered engine name for a host, or "".
func (dm *DomainMemory) Get(host string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.store[host]
}

// Set records which engine succeeded for a host.
func (dm *DomainMemory) Set(host, engineName string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.store[host] = engineName
}

// Delete forgets the host (e.g. after the remembered engine fails).
func (dm *DomainMemory) Delete(host string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.store, host)
}
