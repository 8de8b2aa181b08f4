package middleware

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/logger"
)

// Forever caches a result until it is invalidated.
const Forever time.Duration = -1

type cacheTTLKey struct{}

// WithCacheTTL enables result caching for read statements issued with the
// returned context. A ttl of zero disables caching again.
func WithCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey{}, ttl)
}

// cacheTTL reports how long stmt's result may be cached. Statements inside
// a transaction are never cached, since they may see uncommitted data.
func cacheTTL(ctx context.Context, stmt *core.Statement) (time.Duration, bool) {
	if !stmt.Kind.Reads() || stmt.InTransaction || stmt.Decode == nil {
		return 0, false
	}
	ttl, ok := ctx.Value(cacheTTLKey{}).(time.Duration)
	if !ok || ttl == 0 {
		return 0, false
	}
	if ttl < 0 {
		return Forever, true
	}
	return ttl, true
}

func ownerPrefix(owner string) string {
	return "jdao:cache:" + owner + ":"
}

// cacheKey separates results by statement, arguments and the Go type they
// were mapped to.
func cacheKey(stmt *core.Statement) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%s|%v", stmt.SQL, stmt.Kind, typeName(stmt.ResultType), stmt.Args)))
	return ownerPrefix(stmt.Owner) + stmt.Key + ":" + hex.EncodeToString(sum[:])
}

func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	base := t
	for base.Kind() == reflect.Pointer || base.Kind() == reflect.Slice || base.Kind() == reflect.Array || base.Kind() == reflect.Map {
		base = base.Elem()
	}
	return base.PkgPath() + "." + t.String()
}

// invalidates reports whether a successful stmt may have changed data its
// owner's cached reads depend on.
func invalidates(stmt *core.Statement) bool {
	return !stmt.Kind.Reads()
}

// invalidateOnWrite drops the owner's cached reads now and, for a write
// inside a transaction scope, again once the scope commits. Reads issued
// outside the scope in between would otherwise cache pre-commit data.
func invalidateOnWrite(ctx context.Context, stmt *core.Statement, drop func(ctx context.Context)) {
	drop(ctx)
	if !stmt.InTransaction {
		return
	}
	if tx := core.Current(ctx); tx != nil {
		tx.AfterCommit(drop)
	}
}

// errLossyValue marks results that do not survive the JSON round trip,
// such as structs with unexported fields or raw bytes read as scalars.
var errLossyValue = errors.New("value does not survive encoding")

type cacheEntry struct {
	Found     bool            `json:"found"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

func newCacheEntry(stmt *core.Statement, res *core.Result, ttl time.Duration) ([]byte, error) {
	value, err := json.Marshal(res.Value)
	if err != nil {
		return nil, err
	}
	back, err := stmt.Decode(value)
	if err != nil || !reflect.DeepEqual(back, res.Value) {
		return nil, fmt.Errorf("%w: %s", errLossyValue, typeName(stmt.ResultType))
	}
	entry := cacheEntry{Found: res.Found, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	return json.Marshal(entry)
}

func logCacheSkip(log logger.Logger, stmt *core.Statement, err error) {
	if errors.Is(err, errLossyValue) {
		log.Debug("not caching %s.%s: %v", stmt.Owner, stmt.Key, err)
		return
	}
	log.Warn("caching %s.%s: %v", stmt.Owner, stmt.Key, err)
}

func parseCacheEntry(data []byte) (*cacheEntry, error) {
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// result rebuilds the cached value through the statement's decoder.
func (e *cacheEntry) result(stmt *core.Statement) (*core.Result, error) {
	v, err := stmt.Decode(e.Value)
	if err != nil {
		return nil, err
	}
	return &core.Result{Value: v, Found: e.Found, Cached: true}, nil
}
