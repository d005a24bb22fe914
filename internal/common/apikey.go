package common

import "sync"

// APIKey is a concurrency-safe holder for a provider credential that can be
// replaced at runtime. Clients read it on every request so an update applies
// to the next upstream call.
type APIKey struct {
	mu    sync.RWMutex
	value string
}

// NewAPIKey creates a holder seeded with value.
func NewAPIKey(value string) *APIKey {
	return &APIKey{value: value}
}

// Get returns the current key.
func (k *APIKey) Get() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.value
}

// Set replaces the current key.
func (k *APIKey) Set(value string) {
	k.mu.Lock()
	k.value = value
	k.mu.Unlock()
}

// Masked returns the key with everything but the last four characters hidden.
func (k *APIKey) Masked() string {
	v := k.Get()
	if len(v) <= 4 {
		return v
	}
	masked := make([]byte, len(v)-4)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + v[len(v)-4:]
}
