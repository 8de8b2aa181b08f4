package middleware

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/logger"
)

// FileCacheMiddleware caches read results as JSON files under CacheDir, one
// subdirectory per owner. Enable it per call with WithCacheTTL. Successful
// writes remove the owner's directory.
type FileCacheMiddleware struct {
	CacheDir string
	log      logger.Logger
}

func NewFileCache(cacheDir string) *FileCacheMiddleware {
	return &FileCacheMiddleware{CacheDir: cacheDir, log: logger.Discard()}
}

func (m *FileCacheMiddleware) Name() string {
	return "FileCache"
}

func (m *FileCacheMiddleware) Init(db *core.DB) error {
	m.log = db.Logger()
	if m.CacheDir == "" {
		return fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(m.CacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

func (m *FileCacheMiddleware) Shutdown() error {
	return nil
}

func (m *FileCacheMiddleware) ownerDir(owner string) string {
	sum := md5.Sum([]byte(owner))
	return filepath.Join(m.CacheDir, hex.EncodeToString(sum[:4]))
}

func (m *FileCacheMiddleware) path(stmt *core.Statement) string {
	sum := md5.Sum([]byte(cacheKey(stmt)))
	return filepath.Join(m.ownerDir(stmt.Owner), hex.EncodeToString(sum[:])+".json")
}

// Invalidate removes every cached result of owner.
func (m *FileCacheMiddleware) Invalidate(owner string) error {
	return os.RemoveAll(m.ownerDir(owner))
}

func (m *FileCacheMiddleware) Process(ctx context.Context, stmt *core.Statement, next core.StatementFunc) (*core.Result, error) {
	ttl, ok := cacheTTL(ctx, stmt)
	if !ok {
		res, err := next(ctx, stmt)
		if err == nil && invalidates(stmt) {
			invalidateOnWrite(ctx, stmt, func(context.Context) {
				if ierr := m.Invalidate(stmt.Owner); ierr != nil {
					m.log.Warn("invalidating cache of %s: %v", stmt.Owner, ierr)
				}
			})
		}
		return res, err
	}

	filename := m.path(stmt)
	if data, err := os.ReadFile(filename); err == nil {
		entry, perr := parseCacheEntry(data)
		if perr == nil && !entry.expired(time.Now()) {
			if res, derr := entry.result(stmt); derr == nil {
				return res, nil
			}
		}
		_ = os.Remove(filename)
	}

	res, err := next(ctx, stmt)
	if err != nil {
		return res, err
	}

	data, err := newCacheEntry(stmt, res, ttl)
	if err == nil {
		err = os.MkdirAll(filepath.Dir(filename), 0o755)
	}
	if err == nil {
		err = os.WriteFile(filename, data, 0o644)
	}
	if err != nil {
		logCacheSkip(m.log, stmt, err)
	}
	return res, nil
}
