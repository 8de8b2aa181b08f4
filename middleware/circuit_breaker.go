package middleware

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"time"

	"github.com/shrek82/jdao/core"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerMiddleware stops sending statements to a database that keeps
// failing to hand out connections. After ResetTimeout one trial statement is
// let through; its outcome closes or reopens the circuit.
type CircuitBreakerMiddleware struct {
	Threshold    int           // consecutive failures before opening
	ResetTimeout time.Duration // time to wait before half-open
	// Trips decides which errors count as failures. Statement errors such
	// as constraint violations should not.
	Trips func(err error) bool

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreakerMiddleware {
	return &CircuitBreakerMiddleware{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		Trips:        IsConnectionError,
	}
}

// IsConnectionError reports errors caused by an unusable database rather
// than by the statement.
func IsConnectionError(err error) bool {
	return errors.Is(err, core.ErrConnection) || errors.Is(err, driver.ErrBadConn)
}

func (m *CircuitBreakerMiddleware) Name() string {
	return "CircuitBreaker"
}

func (m *CircuitBreakerMiddleware) Init(db *core.DB) error {
	return nil
}

func (m *CircuitBreakerMiddleware) Shutdown() error {
	return nil
}

// State returns the current state of the circuit.
func (m *CircuitBreakerMiddleware) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CircuitBreakerMiddleware) Process(ctx context.Context, stmt *core.Statement, next core.StatementFunc) (*core.Result, error) {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		if time.Since(m.lastFailure) < m.ResetTimeout {
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		m.state = StateHalfOpen
		m.probing = true
	case StateHalfOpen:
		if m.probing {
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		m.probing = true
	}
	m.mu.Unlock()

	res, err := next(ctx, stmt)

	trips := m.Trips
	if trips == nil {
		trips = IsConnectionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil && trips(err) {
		m.recordFailure()
	} else {
		m.recordSuccess()
	}
	return res, err
}

func (m *CircuitBreakerMiddleware) recordFailure() {
	m.failures++
	m.lastFailure = time.Now()
	switch m.state {
	case StateClosed:
		if m.failures >= m.Threshold {
			m.state = StateOpen
		}
	case StateHalfOpen:
		m.state = StateOpen
		m.probing = false
	}
}

func (m *CircuitBreakerMiddleware) recordSuccess() {
	m.failures = 0
	if m.state == StateHalfOpen {
		m.state = StateClosed
		m.probing = false
	}
}
