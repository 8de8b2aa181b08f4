package core

import (
	"context"
	"encoding/json"
	"reflect"
)

// StatementKind tells middleware what a statement does.
type StatementKind int

const (
	KindScalar StatementKind = iota
	KindOne
	KindMany
	KindUpdate
	KindCall
)

var statementKindNames = [...]string{"scalar", "one", "many", "update", "call"}

func (k StatementKind) String() string {
	if k < 0 || int(k) >= len(statementKindNames) {
		return "unknown"
	}
	return statementKindNames[k]
}

// Reads reports whether statements of this kind only return data.
func (k StatementKind) Reads() bool {
	return k == KindScalar || k == KindOne || k == KindMany
}

// Component is the lifecycle every middleware implements.
type Component interface {
	Name() string
	Init(db *DB) error
	Shutdown() error
}

// Statement describes one catalog statement on its way to the database.
type Statement struct {
	Kind  StatementKind
	Owner string
	Key   string
	// SQL is the catalog text, before placeholder rewriting.
	SQL  string
	Args []any
	// InTransaction is set when the statement runs on a scope's connection.
	InTransaction bool
	TxID          string
	// Fields are attached to the log lines of this statement.
	Fields map[string]any
	// ResultType is the Go type of Result.Value for reads, nil otherwise.
	ResultType reflect.Type
	// Decode rebuilds a Result.Value from its JSON form. It is nil for kinds
	// whose value cannot be cached.
	Decode func(data []byte) (any, error)
}

// SetField attaches a log field to the statement.
func (s *Statement) SetField(key string, value any) {
	if s.Fields == nil {
		s.Fields = make(map[string]any)
	}
	s.Fields[key] = value
}

// Result is what a statement produced.
type Result struct {
	// Value is the mapped scalar, row or rows, or the has-result flag of a call.
	Value any
	// Found is false when a scalar or single-row query matched nothing.
	Found        bool
	RowsAffected int64
	// Cached is set by cache middleware when Value did not come from the database.
	Cached bool
}

// StatementFunc is the next step in the middleware chain.
type StatementFunc func(ctx context.Context, stmt *Statement) (*Result, error)

// Middleware intercepts statement execution, connection acquisition included.
type Middleware interface {
	Component
	Process(ctx context.Context, stmt *Statement, next StatementFunc) (*Result, error)
}

func decodeJSON[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
