// Package catalog holds the SQL statements data-access objects execute,
// keyed by owner (usually the DAO type name) and operation key.
//
// Catalogs are built once at startup, from .properties files (one file per
// owner, named <Owner>.properties), TOML documents (one table per owner) or
// direct registration, and are read-only afterwards. Require validates that
// every key an owner needs is present, so a missing statement fails the
// process at boot instead of on first use.
package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when an owner or key has no statement.
	ErrNotFound = errors.New("statement not found")
	// ErrDuplicate is returned when a key is registered twice for one owner.
	ErrDuplicate = errors.New("duplicate statement")
	// ErrEmpty is returned for a blank owner, key or statement.
	ErrEmpty = errors.New("empty statement definition")
)

// Source is the lookup capability the data-access layer consumes.
type Source interface {
	Lookup(owner, key string) (string, error)
}

// Catalog is a concurrency-safe statement registry.
type Catalog struct {
	mu     sync.RWMutex
	owners map[string]map[string]string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{owners: make(map[string]map[string]string)}
}

// Register adds one statement. Registering an existing key fails.
func (c *Catalog) Register(owner, key, sql string) error {
	owner, key, sql = strings.TrimSpace(owner), strings.TrimSpace(key), strings.TrimSpace(sql)
	if owner == "" || key == "" || sql == "" {
		return fmt.Errorf("%w: owner=%q key=%q", ErrEmpty, owner, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stmts, ok := c.owners[owner]
	if !ok {
		stmts = make(map[string]string)
		c.owners[owner] = stmts
	}
	if _, exists := stmts[key]; exists {
		return fmt.Errorf("%w: %s.%s", ErrDuplicate, owner, key)
	}
	stmts[key] = sql
	return nil
}

// RegisterAll adds every key of stmts under owner.
func (c *Catalog) RegisterAll(owner string, stmts map[string]string) error {
	keys := make([]string, 0, len(stmts))
	for k := range stmts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Register(owner, k, stmts[k]); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the statement registered for owner and key.
func (c *Catalog) Lookup(owner, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stmts, ok := c.owners[owner]
	if !ok {
		return "", fmt.Errorf("%w: no catalog for %q", ErrNotFound, owner)
	}
	sql, ok := stmts[key]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrNotFound, owner, key)
	}
	return sql, nil
}

// Require fails unless owner has a statement for every key.
// All missing keys are reported at once.
func (c *Catalog) Require(owner string, keys ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stmts, ok := c.owners[owner]
	if !ok {
		return fmt.Errorf("%w: no catalog for %q", ErrNotFound, owner)
	}
	var missing []string
	for _, k := range keys {
		if _, ok := stmts[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s.{%s}", ErrNotFound, owner, strings.Join(missing, ", "))
	}
	return nil
}

// Owners lists the registered owners in sorted order.
func (c *Catalog) Owners() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owners := make([]string, 0, len(c.owners))
	for o := range c.owners {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return owners
}

// Statements returns a copy of owner's statements.
func (c *Catalog) Statements(owner string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.owners[owner]))
	for k, v := range c.owners[owner] {
		out[k] = v
	}
	return out
}

// OwnerOf returns the type name of v with pointers stripped, which is the
// conventional owner name for a DAO value.
func OwnerOf(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
