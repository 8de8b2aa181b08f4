package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shrek82/jdao/dialect"
)

// Provider hands out dedicated connections and takes them back.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Acquire returns a connection marked read-only or read-write.
	Acquire(ctx context.Context, readOnly bool) (*Conn, error)
	// Release returns the connection to the pool. Releasing a connection
	// that was already released is a no-op.
	Release(c *Conn) error
}

// Options defines the configuration for the underlying *sql.DB pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// StdPool is an implementation of Provider using the standard library's *sql.DB.
type StdPool struct {
	*sql.DB
	dialect dialect.Dialect
}

// NewStdPool creates a new StdPool wrapping the given *sql.DB.
func NewStdPool(db *sql.DB, d dialect.Dialect) *StdPool {
	return &StdPool{DB: db, dialect: d}
}

// Configure applies the non-zero pool options.
func (p *StdPool) Configure(opts *Options) {
	if opts == nil {
		return
	}
	if opts.MaxOpenConns > 0 {
		p.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		p.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		p.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		p.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

// Dialect returns the dialect connections are configured with.
func (p *StdPool) Dialect() dialect.Dialect {
	return p.dialect
}

// Acquire pins one physical connection and applies the read-only flag to it.
func (p *StdPool) Acquire(ctx context.Context, readOnly bool) (*Conn, error) {
	raw, err := p.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	c := &Conn{raw: raw, dialect: p.dialect, autoCommit: true}
	if err := c.SetReadOnly(ctx, readOnly); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("marking connection read-only=%t: %w", readOnly, err)
	}
	return c, nil
}

// Release closes the dedicated connection, which hands it back to *sql.DB.
// Read-only connections are switched back to read-write first, so code
// using the *sql.DB directly never inherits the flag.
func (p *StdPool) Release(c *Conn) error {
	if c == nil {
		return nil
	}
	var err error
	if !c.IsClosed() && c.ReadOnly() {
		err = c.SetReadOnly(context.Background(), false)
	}
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	return err
}

// InUse reports the number of connections currently checked out.
func (p *StdPool) InUse() int {
	return p.Stats().InUse
}

// ErrAutoCommit is returned by Commit and Rollback on a connection whose
// auto-commit mode is on.
var ErrAutoCommit = errors.New("connection is in auto-commit mode")
