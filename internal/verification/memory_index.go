package verification

import (
	"context"
	"sync"
	"time"
)

type memoryIndex struct {
	mu    sync.Mutex
	codes map[string]time.Time
}

// NewMemoryIndex creates an in-memory pending-code index for unit tests.
func NewMemoryIndex() PendingIndex {
	return &memoryIndex{codes: make(map[string]time.Time)}
}

func (i *memoryIndex) Reserve(_ context.Context, code string, ttl time.Duration) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	if expires, held := i.codes[code]; held && now.Before(expires) {
		return false, nil
	}
	i.codes[code] = now.Add(ttl)
	return true, nil
}
