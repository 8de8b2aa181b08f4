package core

import (
	"errors"
	"fmt"

	"github.com/shrek82/jdao/pool"
)

var (
	// ErrConfiguration is returned when a statement catalog or key is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrConnection is returned when a connection cannot be acquired or prepared for use.
	ErrConnection = errors.New("connection error")
	// ErrUnsupportedParameterType is matched by every *UnsupportedParameterTypeError.
	ErrUnsupportedParameterType = errors.New("unsupported parameter type")
	// ErrTransactionState is returned when a transaction is started while one is
	// active, or finished when none is.
	ErrTransactionState = errors.New("invalid transaction state")
	// ErrAutoCommit is returned by commit or rollback on a connection in auto-commit mode.
	ErrAutoCommit = pool.ErrAutoCommit
)

// UnsupportedParameterTypeError reports a parameter value outside the
// supported set.
type UnsupportedParameterTypeError struct {
	// Type is the runtime type of the offending value.
	Type string
	// Position is the 1-based parameter index.
	Position int
}

func (e *UnsupportedParameterTypeError) Error() string {
	return fmt.Sprintf("unsupported parameter type %s at position %d", e.Type, e.Position)
}

func (e *UnsupportedParameterTypeError) Is(target error) bool {
	return target == ErrUnsupportedParameterType
}
