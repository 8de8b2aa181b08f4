package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/shrek82/jdao/dialect"
	"github.com/shrek82/jdao/logger"
	"github.com/shrek82/jdao/pool"
)

// executor runs one statement on a connection it does not own. It closes
// the prepared statement and result set it opens, and nothing else.
type executor struct {
	dialect dialect.Dialect
	log     logger.Logger
	slow    time.Duration
}

// bind rewrites placeholders for the dialect and converts the arguments.
func (e *executor) bind(query string, values []any) (string, []any, error) {
	args, err := Bind(values...)
	if err != nil {
		return "", nil, err
	}
	if e.dialect != nil {
		query = dialect.Rebind(e.dialect, query)
	}
	return query, args, nil
}

// cleanup closes a resource, keeping the first error. A close failure after
// an earlier error is only logged.
func (e *executor) cleanup(err *error, what string, closeFn func() error) {
	cerr := closeFn()
	if cerr == nil {
		return
	}
	if *err == nil {
		*err = cerr
		return
	}
	e.log.Warn("closing %s: %v", what, cerr)
}

func (e *executor) logSQL(query string, start time.Time, err error, args []any) {
	took := time.Since(start)
	e.log.SQL(query, took, err, args...)
	if err == nil && e.slow > 0 && took > e.slow {
		e.log.Warn("SLOW SQL (%v > %v): %s", took, e.slow, query)
	}
}

// rows prepares and runs a query, handing the open result set to fn.
func (e *executor) rows(ctx context.Context, c *pool.Conn, query string, values []any, fn func(*sql.Rows) error) (err error) {
	query, args, err := e.bind(query, values)
	if err != nil {
		return err
	}
	start := time.Now()
	defer func() { e.logSQL(query, start, err, args) }()

	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer e.cleanup(&err, "statement", stmt.Close)

	rs, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	defer e.cleanup(&err, "result set", rs.Close)

	if err = fn(rs); err != nil {
		return err
	}
	return rs.Err()
}

// drain consumes the rest of a result set.
func drain(rs *sql.Rows) {
	for rs.Next() {
	}
}

func queryOne[T any](ctx context.Context, e *executor, c *pool.Conn, query string, values []any, mapper RowMapper[T]) (value T, found bool, err error) {
	err = e.rows(ctx, c, query, values, func(rs *sql.Rows) error {
		if !rs.Next() {
			return nil
		}
		v, merr := mapper(rs)
		if merr != nil {
			return merr
		}
		value, found = v, true
		drain(rs)
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return value, found, nil
}

func queryMany[T any](ctx context.Context, e *executor, c *pool.Conn, query string, values []any, mapper RowMapper[T]) ([]T, error) {
	list := make([]T, 0)
	err := e.rows(ctx, c, query, values, func(rs *sql.Rows) error {
		for rs.Next() {
			v, merr := mapper(rs)
			if merr != nil {
				return merr
			}
			list = append(list, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// update returns the number of rows the statement changed.
func (e *executor) update(ctx context.Context, c *pool.Conn, query string, values []any) (n int64, err error) {
	query, args, err := e.bind(query, values)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	defer func() { e.logSQL(query, start, err, args) }()

	stmt, err := c.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer e.cleanup(&err, "statement", stmt.Close)

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// call runs an arbitrary statement and reports whether it produced a result
// set. Any rows are consumed so the statement runs to completion.
func (e *executor) call(ctx context.Context, c *pool.Conn, query string, values []any) (bool, error) {
	var hasResult bool
	err := e.rows(ctx, c, query, values, func(rs *sql.Rows) error {
		cols, err := rs.Columns()
		if err != nil {
			return err
		}
		hasResult = len(cols) > 0
		drain(rs)
		return nil
	})
	if err != nil {
		return false, err
	}
	return hasResult, nil
}
