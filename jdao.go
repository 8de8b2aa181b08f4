package jdao

import (
	"context"

	"github.com/shrek82/jdao/catalog"
	"github.com/shrek82/jdao/core"
)

// Re-export core types and functions
type DB = core.DB
type DAO = core.DAO
type Options = core.Options
type Transaction = core.Transaction
type Row = core.Row
type Param = core.Param
type Statement = core.Statement
type Result = core.Result
type Middleware = core.Middleware
type UnsupportedParameterTypeError = core.UnsupportedParameterTypeError

// RowMapper converts the current row into a T.
type RowMapper[T any] = core.RowMapper[T]

var (
	Open        = core.Open
	LoadOptions = core.LoadOptions
	NewDAO      = core.NewDAO
	NewDAOFor   = core.NewDAOFor
	ReadWrite   = core.ReadWrite

	// Transactions
	Start   = core.Start
	Current = core.Current
	Finish  = core.Finish

	// Parameters
	Bind      = core.Bind
	Null      = core.Null
	String    = core.String
	Int       = core.Int
	Long      = core.Long
	Float     = core.Float
	Double    = core.Double
	Bool      = core.Bool
	Date      = core.Date
	Time      = core.Time
	Timestamp = core.Timestamp
	Array     = core.Array

	// Mappers
	BoolMapper   = core.BoolMapper
	IntMapper    = core.IntMapper
	StringMapper = core.StringMapper
	ScalarMapper = core.ScalarMapper
	ColumnMapper = core.ColumnMapper

	// Errors
	ErrConfiguration            = core.ErrConfiguration
	ErrConnection               = core.ErrConnection
	ErrUnsupportedParameterType = core.ErrUnsupportedParameterType
	ErrTransactionState         = core.ErrTransactionState
	ErrAutoCommit               = core.ErrAutoCommit
	ErrNotFound                 = catalog.ErrNotFound

	NewCatalog = catalog.New
)

// StructMapper maps columns onto the fields of T.
func StructMapper[T any]() RowMapper[T] {
	return core.StructMapper[T]()
}

// QueryForOne maps the first row of the statement's result.
func QueryForOne[T any](ctx context.Context, d *DAO, key string, mapper RowMapper[T], args ...any) (T, bool, error) {
	return core.QueryForOne(ctx, d, key, mapper, args...)
}

// QueryForMany maps every row of the statement's result.
func QueryForMany[T any](ctx context.Context, d *DAO, key string, mapper RowMapper[T], args ...any) ([]T, error) {
	return core.QueryForMany(ctx, d, key, mapper, args...)
}
