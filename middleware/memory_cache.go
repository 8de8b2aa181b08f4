package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/logger"
)

// MemoryCacheMiddleware caches read results in process memory.
// Enable it per call with WithCacheTTL. Successful writes drop every
// cached result of the same owner.
type MemoryCacheMiddleware struct {
	items         map[string][]byte
	mu            sync.RWMutex
	stopClean     chan struct{}
	once          sync.Once
	CleanInterval time.Duration
	log           logger.Logger
}

func NewMemoryCache() *MemoryCacheMiddleware {
	return &MemoryCacheMiddleware{
		items:         make(map[string][]byte),
		stopClean:     make(chan struct{}),
		CleanInterval: time.Minute,
		log:           logger.Discard(),
	}
}

func (m *MemoryCacheMiddleware) Name() string {
	return "MemoryCache"
}

func (m *MemoryCacheMiddleware) Init(db *core.DB) error {
	m.log = db.Logger()
	go m.cleanupLoop()
	return nil
}

func (m *MemoryCacheMiddleware) cleanupLoop() {
	ticker := time.NewTicker(m.CleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopClean:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *MemoryCacheMiddleware) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, data := range m.items {
		if e, err := parseCacheEntry(data); err != nil || e.expired(now) {
			delete(m.items, k)
		}
	}
}

func (m *MemoryCacheMiddleware) Shutdown() error {
	m.once.Do(func() { close(m.stopClean) })
	return nil
}

// Len reports the number of cached results.
func (m *MemoryCacheMiddleware) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Invalidate drops every cached result of owner.
func (m *MemoryCacheMiddleware) Invalidate(owner string) {
	prefix := ownerPrefix(owner)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
}

func (m *MemoryCacheMiddleware) Process(ctx context.Context, stmt *core.Statement, next core.StatementFunc) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, stmt)
	if !ok {
		res, err := next(ctx, stmt)
		if err == nil && invalidates(stmt) {
			invalidateOnWrite(ctx, stmt, func(context.Context) { m.Invalidate(stmt.Owner) })
		}
		return res, err
	}

	key := cacheKey(stmt)
	m.mu.RLock()
	data, found := m.items[key]
	m.mu.RUnlock()

	if found {
		entry, err := parseCacheEntry(data)
		if err == nil && !entry.expired(time.Now()) {
			if res, err := entry.result(stmt); err == nil {
				return res, nil
			}
		}
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
	}

	res, err := next(ctx, stmt)
	if err != nil {
		return res, err
	}

	data, err = newCacheEntry(stmt, res, ttl)
	if err != nil {
		logCacheSkip(m.log, stmt, err)
		return res, nil
	}
	m.mu.Lock()
	m.items[key] = data
	m.mu.Unlock()
	return res, nil
}
