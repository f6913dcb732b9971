package audiocache

import (
	"sync"

	"github.com/google/uuid"
)

// RefPrefix is the URL path prefix under which minted references are served.
const RefPrefix = "/streams/generated/"

// ReferenceRegistry mints session-scoped playable references for cached
// payloads. References are process-local: none survive a restart, so every
// cold read from the durable tier mints a fresh one.
type ReferenceRegistry struct {
	mu   sync.RWMutex
	refs map[string][]byte
}

// NewReferenceRegistry creates an empty registry.
func NewReferenceRegistry() *ReferenceRegistry {
	return &ReferenceRegistry{refs: make(map[string][]byte)}
}

// Mint registers a payload and returns a new playable reference for it.
func (r *ReferenceRegistry) Mint(payload []byte) string {
	ref := RefPrefix + uuid.NewString()
	r.mu.Lock()
	r.refs[ref] = payload
	r.mu.Unlock()
	return ref
}

// Resolve returns the payload behind a reference, if it is still live.
func (r *ReferenceRegistry) Resolve(ref string) ([]byte, bool) {
	r.mu.RLock()
	payload, ok := r.refs[ref]
	r.mu.RUnlock()
	return payload, ok
}

// Revoke releases one reference. Revoked references resolve to nothing.
func (r *ReferenceRegistry) Revoke(ref string) {
	r.mu.Lock()
	delete(r.refs, ref)
	r.mu.Unlock()
}

// Len returns the number of live references.
func (r *ReferenceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
