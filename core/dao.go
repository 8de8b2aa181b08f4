package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/shrek82/jdao/catalog"
	"github.com/shrek82/jdao/pool"
)

// DAO runs the statements one owner has in the catalog. A DAO holds no
// per-call state and is safe for concurrent use; transaction state lives in
// the context.
//
// A statement issued with a context that carries an active Transaction
// runs on that scope's connection and leaves it open. Otherwise it runs on
// a connection acquired for that statement alone and released before the
// call returns.
type DAO struct {
	db       *DB
	owner    string
	readOnly bool
}

// DAOOption configures a DAO.
type DAOOption func(*DAO)

// ReadWrite makes the DAO writable. DAOs are read-only by default.
func ReadWrite() DAOOption {
	return func(d *DAO) { d.readOnly = false }
}

// NewDAO returns a DAO looking up its statements under owner.
func NewDAO(db *DB, owner string, opts ...DAOOption) *DAO {
	d := &DAO{db: db, owner: owner, readOnly: true}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDAOFor uses the type name of v as the owner.
func NewDAOFor(db *DB, v any, opts ...DAOOption) *DAO {
	return NewDAO(db, catalog.OwnerOf(v), opts...)
}

func (d *DAO) Owner() string  { return d.owner }
func (d *DAO) ReadOnly() bool { return d.readOnly }
func (d *DAO) DB() *DB        { return d.db }

// Require checks that every key is in the catalog.
func (d *DAO) Require(keys ...string) error {
	if err := d.db.Catalog().Require(d.owner, keys...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// Begin starts a Transaction for this DAO.
func (d *DAO) Begin(ctx context.Context) (context.Context, *Transaction, error) {
	return Start(ctx, d)
}

// Transaction runs fn inside a new scope. The work is committed when fn
// returns nil and rolled back when it returns an error or panics; the scope
// is finished either way.
func (d *DAO) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, tx, err := Start(ctx, d)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := tx.Finish(); ferr != nil {
			if err == nil {
				err = ferr
			} else {
				d.db.Logger().Warn("finishing transaction %s: %v", tx.ID(), ferr)
			}
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			if rerr := tx.Rollback(ctx); rerr != nil {
				d.db.Logger().Warn("rolling back transaction %s: %v", tx.ID(), rerr)
			}
			panic(p)
		}
	}()

	if err = fn(ctx); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil {
			d.db.Logger().Warn("rolling back transaction %s: %v", tx.ID(), rerr)
		}
		return err
	}
	return tx.Commit(ctx)
}

type execFunc func(ctx context.Context, e *executor, c *pool.Conn, stmt *Statement) (*Result, error)

// run looks the statement up, sends it through the middleware chain and
// finally executes it under the connection policy.
func (d *DAO) run(ctx context.Context, kind StatementKind, key string, args []any, typ reflect.Type, decode func([]byte) (any, error), exec execFunc) (*Result, error) {
	text, err := d.db.Catalog().Lookup(d.owner, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	stmt := &Statement{
		Kind:       kind,
		Owner:      d.owner,
		Key:        key,
		SQL:        text,
		Args:       args,
		ResultType: typ,
		Decode:     decode,
	}
	if tx := Current(ctx); tx != nil {
		stmt.InTransaction = true
		stmt.TxID = tx.ID()
		stmt.SetField("tx", stmt.TxID)
	}

	final := func(ctx context.Context, stmt *Statement) (*Result, error) {
		return d.execute(ctx, stmt, exec)
	}
	return d.db.chain(final)(ctx, stmt)
}

func (d *DAO) execute(ctx context.Context, stmt *Statement, exec execFunc) (res *Result, err error) {
	log := d.db.Logger()
	if len(stmt.Fields) > 0 {
		log = log.WithFields(stmt.Fields)
	}
	e := &executor{dialect: d.db.Dialect(), log: log, slow: d.db.slowThreshold}

	if tx := Current(ctx); tx != nil {
		c, err := tx.Conn(ctx)
		if err != nil {
			return nil, err
		}
		return exec(ctx, e, c, stmt)
	}

	p := d.db.Provider()
	c, err := p.Acquire(ctx, d.readOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer func() {
		if rerr := p.Release(c); rerr != nil {
			if err == nil {
				res, err = nil, fmt.Errorf("%w: %w", ErrConnection, rerr)
				return
			}
			log.Warn("releasing connection: %v", rerr)
		}
	}()
	return exec(ctx, e, c, stmt)
}

// QueryForScalar returns the first column of the first row, or nil when the
// query matches nothing. Integers come back as int64 and text as string.
func (d *DAO) QueryForScalar(ctx context.Context, key string, args ...any) (any, error) {
	v, _, err := queryOneKind[any](ctx, d, KindScalar, key, ScalarMapper, args)
	return v, err
}

// QueryForInt returns the first column of the first row as an integer.
func (d *DAO) QueryForInt(ctx context.Context, key string, args ...any) (int64, bool, error) {
	return queryOneKind(ctx, d, KindScalar, key, IntMapper, args)
}

// QueryForBool returns the first column of the first row as a boolean.
func (d *DAO) QueryForBool(ctx context.Context, key string, args ...any) (bool, bool, error) {
	return queryOneKind(ctx, d, KindScalar, key, BoolMapper, args)
}

// QueryForString returns the first column of the first row as text.
func (d *DAO) QueryForString(ctx context.Context, key string, args ...any) (string, bool, error) {
	return queryOneKind(ctx, d, KindScalar, key, StringMapper, args)
}

// Update runs an INSERT, UPDATE or DELETE and returns the affected row count.
func (d *DAO) Update(ctx context.Context, key string, args ...any) (int64, error) {
	res, err := d.run(ctx, KindUpdate, key, args, nil, nil, func(ctx context.Context, e *executor, c *pool.Conn, stmt *Statement) (*Result, error) {
		n, err := e.update(ctx, c, stmt.SQL, stmt.Args)
		if err != nil {
			return nil, err
		}
		return &Result{RowsAffected: n, Found: true}, nil
	})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// ExecuteCall runs a stored procedure call or any other statement and
// reports whether it produced a result set. Rows are consumed and dropped.
func (d *DAO) ExecuteCall(ctx context.Context, key string, args ...any) (bool, error) {
	res, err := d.run(ctx, KindCall, key, args, nil, nil, func(ctx context.Context, e *executor, c *pool.Conn, stmt *Statement) (*Result, error) {
		ok, err := e.call(ctx, c, stmt.SQL, stmt.Args)
		if err != nil {
			return nil, err
		}
		return &Result{Value: ok, Found: true}, nil
	})
	if err != nil {
		return false, err
	}
	ok, _ := res.Value.(bool)
	return ok, nil
}

// QueryForOne maps the first row of the result with mapper. found is false
// when the query matched nothing. Further rows are read and ignored.
func QueryForOne[T any](ctx context.Context, d *DAO, key string, mapper RowMapper[T], args ...any) (T, bool, error) {
	return queryOneKind(ctx, d, KindOne, key, mapper, args)
}

func queryOneKind[T any](ctx context.Context, d *DAO, kind StatementKind, key string, mapper RowMapper[T], args []any) (T, bool, error) {
	res, err := d.run(ctx, kind, key, args, reflect.TypeFor[T](), decoderFor[T](), func(ctx context.Context, e *executor, c *pool.Conn, stmt *Statement) (*Result, error) {
		v, found, err := queryOne(ctx, e, c, stmt.SQL, stmt.Args, mapper)
		if err != nil {
			return nil, err
		}
		return &Result{Value: v, Found: found}, nil
	})
	var zero T
	if err != nil {
		return zero, false, err
	}
	if !res.Found {
		return zero, false, nil
	}
	v, _ := res.Value.(T)
	return v, true, nil
}

// QueryForMany maps every row with mapper, in result order. An empty
// result yields an empty, non-nil slice.
func QueryForMany[T any](ctx context.Context, d *DAO, key string, mapper RowMapper[T], args ...any) ([]T, error) {
	res, err := d.run(ctx, KindMany, key, args, reflect.TypeFor[[]T](), decodeJSON[[]T], func(ctx context.Context, e *executor, c *pool.Conn, stmt *Statement) (*Result, error) {
		list, err := queryMany(ctx, e, c, stmt.SQL, stmt.Args, mapper)
		if err != nil {
			return nil, err
		}
		return &Result{Value: list, Found: len(list) > 0}, nil
	})
	if err != nil {
		return nil, err
	}
	list, _ := res.Value.([]T)
	if list == nil {
		list = make([]T, 0)
	}
	return list, nil
}

// decoderFor picks the cache decoder for a single value of type T. Scalars
// decoded into any keep integers as int64.
func decoderFor[T any]() func([]byte) (any, error) {
	var zero T
	if _, ok := any(&zero).(*any); ok {
		return decodeScalar
	}
	return decodeJSON[T]
}

func decodeScalar(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return v, nil
}
