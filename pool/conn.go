package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shrek82/jdao/dialect"
)

// Conn is one physical connection checked out of a Provider.
//
// With auto-commit on, every statement commits on its own. Turning auto-commit
// off opens a transaction on the connection; Commit and Rollback end it and
// immediately open the next one, so the connection stays transactional until
// auto-commit is switched back on or the connection is closed.
//
// A Conn is not safe for concurrent use.
type Conn struct {
	raw        *sql.Conn
	tx         *sql.Tx
	dialect    dialect.Dialect
	readOnly   bool
	autoCommit bool
	closed     bool
}

// NewConn wraps a dedicated *sql.Conn. It is exported for Provider
// implementations outside this package.
func NewConn(raw *sql.Conn, d dialect.Dialect) *Conn {
	return &Conn{raw: raw, dialect: d, autoCommit: true}
}

// ReadOnly reports the read-only flag last applied to the connection.
func (c *Conn) ReadOnly() bool {
	return c.readOnly
}

// AutoCommit reports whether statements commit individually.
func (c *Conn) AutoCommit() bool {
	return c.autoCommit
}

// IsClosed reports whether the connection was already returned.
func (c *Conn) IsClosed() bool {
	return c.closed
}

// SetReadOnly applies the dialect's session statement, if it has one.
func (c *Conn) SetReadOnly(ctx context.Context, readOnly bool) error {
	if c.closed {
		return sql.ErrConnDone
	}
	if c.dialect != nil {
		if stmt := c.dialect.ReadOnlySQL(readOnly); stmt != "" {
			if _, err := c.raw.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
	}
	c.readOnly = readOnly
	return nil
}

// SetAutoCommit switches auto-commit mode. Turning it back on commits the
// open transaction.
func (c *Conn) SetAutoCommit(ctx context.Context, autoCommit bool) error {
	if c.closed {
		return sql.ErrConnDone
	}
	if autoCommit == c.autoCommit {
		return nil
	}
	if !autoCommit {
		if err := c.begin(ctx); err != nil {
			return err
		}
		c.autoCommit = false
		return nil
	}

	tx := c.tx
	c.tx = nil
	c.autoCommit = true
	if tx != nil {
		return tx.Commit()
	}
	return nil
}

// Commit commits the open transaction and starts the next one.
func (c *Conn) Commit(ctx context.Context) error {
	if c.closed {
		return sql.ErrConnDone
	}
	if c.autoCommit {
		return ErrAutoCommit
	}
	tx := c.tx
	c.tx = nil
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return c.begin(ctx)
}

// Rollback discards the open transaction and starts the next one.
func (c *Conn) Rollback(ctx context.Context) error {
	if c.closed {
		return sql.ErrConnDone
	}
	if c.autoCommit {
		return ErrAutoCommit
	}
	tx := c.tx
	c.tx = nil
	if tx != nil {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return err
		}
	}
	return c.begin(ctx)
}

// PrepareContext prepares a statement on the connection, inside the open
// transaction when auto-commit is off.
func (c *Conn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	if c.closed {
		return nil, sql.ErrConnDone
	}
	if c.tx != nil {
		return c.tx.PrepareContext(ctx, query)
	}
	return c.raw.PrepareContext(ctx, query)
}

// Close rolls back any open transaction and hands the connection back to
// the pool. Closing twice is a no-op.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	var rbErr error
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			rbErr = fmt.Errorf("rolling back on close: %w", err)
		}
		c.tx = nil
	}
	c.autoCommit = true

	if err := c.raw.Close(); err != nil {
		return err
	}
	return rbErr
}

// begin detaches from ctx cancellation: database/sql rolls a transaction back
// when its context ends, and the transaction outlives the statement that
// opened it.
func (c *Conn) begin(ctx context.Context) error {
	tx, err := c.raw.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	c.tx = tx
	return nil
}
