package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shrek82/jdao/catalog"
	"github.com/shrek82/jdao/dialect"
	"github.com/shrek82/jdao/logger"
	"github.com/shrek82/jdao/pool"
)

// Options defines the configuration for the DB connection pool and logging.
type Options struct {
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `toml:"conn_max_idle_time"`
	// LogLevel is one of silent, error, warn, info or debug.
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	// SlowThreshold logs statements running longer at warn level. Zero disables it.
	SlowThreshold time.Duration `toml:"slow_threshold"`
}

func (o *Options) poolOptions() *pool.Options {
	if o == nil {
		return nil
	}
	return &pool.Options{
		MaxOpenConns:    o.MaxOpenConns,
		MaxIdleConns:    o.MaxIdleConns,
		ConnMaxLifetime: o.ConnMaxLifetime,
		ConnMaxIdleTime: o.ConnMaxIdleTime,
	}
}

// LoadOptions reads Options from a TOML file. Durations are written as
// strings such as "30m".
func LoadOptions(path string) (*Options, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	opts := &Options{}
	if err := tree.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, path, err)
	}
	return opts, nil
}

// DB ties a connection provider, a statement catalog and a logger together.
// DAOs are created against it.
type DB struct {
	mu          sync.RWMutex
	std         *pool.StdPool
	base        pool.Provider
	provider    pool.Provider
	inUse       func() int
	dialect     dialect.Dialect
	logger      logger.Logger
	catalog     *catalog.Catalog
	middlewares []Middleware

	slowThreshold time.Duration
}

// Open initializes a new DB instance with the given driver and DSN.
func Open(driver, dsn string, opts *Options) (*DB, error) {
	d, ok := dialect.Get(driver)
	if !ok {
		return nil, fmt.Errorf("%w: unknown dialect %s", ErrConfiguration, driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	p := pool.NewStdPool(sqlDB, d)
	p.Configure(opts.poolOptions())

	if err := p.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	db := New(p, d)
	db.std = p
	db.inUse = p.InUse
	if opts != nil {
		if opts.LogLevel != "" {
			db.logger.SetLevel(logger.ParseLevel(opts.LogLevel))
		}
		if opts.LogFormat != "" {
			db.logger.SetFormat(logger.Format(opts.LogFormat))
		}
		db.slowThreshold = opts.SlowThreshold
	}
	db.rewrap()
	return db, nil
}

// New builds a DB over an existing provider. Close does not close providers
// passed in this way.
func New(p pool.Provider, d dialect.Dialect) *DB {
	db := &DB{
		base:    p,
		dialect: d,
		logger:  logger.NewStdLogger(),
		catalog: catalog.New(),
	}
	if iu, ok := p.(interface{ InUse() int }); ok {
		db.inUse = iu.InUse
	}
	db.rewrap()
	return db
}

// rewrap rebuilds the logging decorator around the base provider.
func (db *DB) rewrap() {
	db.provider = pool.NewLoggingProvider(db.base, db.logger, db.inUse)
}

// Use registers middlewares. They run in registration order, the first
// one outermost.
func (db *DB) Use(mws ...Middleware) error {
	for _, m := range mws {
		if err := m.Init(db); err != nil {
			return fmt.Errorf("init middleware %s: %w", m.Name(), err)
		}
	}
	db.mu.Lock()
	db.middlewares = append(db.middlewares, mws...)
	db.mu.Unlock()
	return nil
}

func (db *DB) chain(final StatementFunc) StatementFunc {
	db.mu.RLock()
	mws := db.middlewares
	db.mu.RUnlock()

	next := final
	for i := len(mws) - 1; i >= 0; i-- {
		m, inner := mws[i], next
		next = func(ctx context.Context, stmt *Statement) (*Result, error) {
			return m.Process(ctx, stmt, inner)
		}
	}
	return next
}

// SetLogger sets a custom logger for the DB.
func (db *DB) SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.Discard()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.logger = l
	db.rewrap()
}

// Logger returns the logger statements are logged to.
func (db *DB) Logger() logger.Logger {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.logger
}

// Catalog returns the statement catalog DAOs look up their SQL in.
func (db *DB) Catalog() *catalog.Catalog {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.catalog
}

// SetCatalog replaces the statement catalog.
func (db *DB) SetCatalog(c *catalog.Catalog) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.catalog = c
}

// Provider returns the provider DAOs acquire connections from.
func (db *DB) Provider() pool.Provider {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.provider
}

// SetProvider replaces the connection provider. Connection logging stays
// on top of it.
func (db *DB) SetProvider(p pool.Provider) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.base = p
	if iu, ok := p.(interface{ InUse() int }); ok {
		db.inUse = iu.InUse
	}
	db.rewrap()
}

// Instrument registers pool metrics with reg and records every
// acquisition and release from now on.
func (db *DB) Instrument(reg prometheus.Registerer, namespace string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	ip, err := pool.Instrument(db.base, reg, namespace)
	if err != nil {
		return err
	}
	db.base = ip
	db.rewrap()
	return nil
}

// Dialect returns the SQL dialect statements are rewritten for.
func (db *DB) Dialect() dialect.Dialect {
	return db.dialect
}

// SQLDB returns the underlying *sql.DB, or nil for a DB built with New.
func (db *DB) SQLDB() *sql.DB {
	if db.std == nil {
		return nil
	}
	return db.std.DB
}

// Close shuts the middlewares down and closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	mws := db.middlewares
	db.middlewares = nil
	db.mu.Unlock()

	var firstErr error
	for i := len(mws) - 1; i >= 0; i-- {
		if err := mws[i].Shutdown(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown middleware %s: %w", mws[i].Name(), err)
		}
	}
	if db.std != nil {
		if err := db.std.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
