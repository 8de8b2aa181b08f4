package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shrek82/jdao/pool"
)

type txKey struct{}

// Transaction binds every statement issued with its context to one
// connection. The connection is acquired by the first statement and, for
// writable DAOs, runs with auto-commit off until Finish returns it.
//
// A Transaction belongs to the goroutine that started it.
type Transaction struct {
	id       uuid.UUID
	dao      *DAO
	conn     *pool.Conn
	provider pool.Provider
	finished bool

	afterCommit []func(ctx context.Context)
}

// Start registers a new scope in the returned context. It fails if ctx
// already carries an active scope. No connection is acquired yet.
func Start(ctx context.Context, dao *DAO) (context.Context, *Transaction, error) {
	if cur := Current(ctx); cur != nil {
		return ctx, nil, fmt.Errorf("%w: transaction %s is already active", ErrTransactionState, cur.id)
	}
	tx := &Transaction{id: uuid.New(), dao: dao}
	dao.db.Logger().Debug("START TRANSACTION %s (owner=%s read-only=%t)", tx.id, dao.owner, dao.readOnly)
	return context.WithValue(ctx, txKey{}, tx), tx, nil
}

// Current returns the active scope carried by ctx, or nil.
func Current(ctx context.Context) *Transaction {
	tx, ok := ctx.Value(txKey{}).(*Transaction)
	if !ok || tx.finished {
		return nil
	}
	return tx
}

// Finish ends the scope carried by ctx.
func Finish(ctx context.Context) error {
	tx := Current(ctx)
	if tx == nil {
		return fmt.Errorf("%w: no active transaction", ErrTransactionState)
	}
	return tx.Finish()
}

// ID identifies the scope in log lines.
func (t *Transaction) ID() string {
	return t.id.String()
}

// ReadOnly reports whether the scope was started by a read-only DAO.
func (t *Transaction) ReadOnly() bool {
	return t.dao.readOnly
}

// Conn returns the scope's connection, acquiring it on first use.
func (t *Transaction) Conn(ctx context.Context) (*pool.Conn, error) {
	if t.finished {
		return nil, fmt.Errorf("%w: transaction %s is finished", ErrTransactionState, t.id)
	}
	if t.conn != nil {
		return t.conn, nil
	}

	p := t.dao.db.Provider()
	c, err := p.Acquire(ctx, t.dao.readOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if !t.dao.readOnly {
		if err := c.SetAutoCommit(ctx, false); err != nil {
			if rerr := p.Release(c); rerr != nil {
				t.dao.db.Logger().Warn("releasing connection of transaction %s: %v", t.id, rerr)
			}
			return nil, fmt.Errorf("%w: %w", ErrConnection, err)
		}
	}
	t.conn, t.provider = c, p
	return c, nil
}

// Commit commits the work done so far, then runs the AfterCommit callbacks.
// The commit itself does nothing for read-only scopes or before the first
// statement.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.finished {
		return fmt.Errorf("%w: transaction %s is finished", ErrTransactionState, t.id)
	}
	if t.conn != nil && !t.dao.readOnly {
		t.dao.db.Logger().Debug("COMMIT %s", t.id)
		if err := t.conn.Commit(ctx); err != nil {
			return err
		}
	}
	hooks := t.afterCommit
	t.afterCommit = nil
	for _, fn := range hooks {
		fn(ctx)
	}
	return nil
}

// AfterCommit registers fn to run once the work done so far is committed.
// Callbacks still pending at Rollback or Finish are dropped with the work.
func (t *Transaction) AfterCommit(fn func(ctx context.Context)) {
	t.afterCommit = append(t.afterCommit, fn)
}

// Rollback discards the work done so far. It does nothing for read-only
// scopes or before the first statement.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.finished {
		return fmt.Errorf("%w: transaction %s is finished", ErrTransactionState, t.id)
	}
	t.afterCommit = nil
	if t.conn == nil || t.dao.readOnly {
		return nil
	}
	t.dao.db.Logger().Debug("ROLLBACK %s", t.id)
	return t.conn.Rollback(ctx)
}

// Finish deregisters the scope and releases its connection. Work that was
// not committed is rolled back by the release.
func (t *Transaction) Finish() error {
	if t.finished {
		return fmt.Errorf("%w: transaction %s is finished", ErrTransactionState, t.id)
	}
	t.finished = true
	t.afterCommit = nil
	t.dao.db.Logger().Debug("FINISH TRANSACTION %s", t.id)

	c := t.conn
	t.conn = nil
	if c == nil {
		return nil
	}
	if err := t.provider.Release(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return nil
}
