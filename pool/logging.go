package pool

import (
	"context"
	"time"

	"github.com/shrek82/jdao/logger"
)

// LoggingProvider wraps a Provider and logs every acquisition together with
// the number of connections checked out at that moment.
type LoggingProvider struct {
	Provider
	logger logger.Logger
	inUse  func() int
}

// NewLoggingProvider decorates p. inUse may be nil when the pool cannot
// report its active count.
func NewLoggingProvider(p Provider, l logger.Logger, inUse func() int) *LoggingProvider {
	if l == nil {
		l = logger.Discard()
	}
	return &LoggingProvider{Provider: p, logger: l, inUse: inUse}
}

func (p *LoggingProvider) Acquire(ctx context.Context, readOnly bool) (*Conn, error) {
	if !p.logger.Enabled(logger.LevelDebug) {
		return p.Provider.Acquire(ctx, readOnly)
	}

	p.logger.Debug("GET CONNECTION read-only=%t", readOnly)
	start := time.Now()
	c, err := p.Provider.Acquire(ctx, readOnly)
	took := time.Since(start)
	if err != nil {
		p.logger.Debug("GET CONNECTION failed after %v: %v", took, err)
		return nil, err
	}
	if p.inUse != nil {
		p.logger.Debug("ACTIVE CONNECTIONS: %d (get connection took %v)", p.inUse(), took)
	} else {
		p.logger.Debug("get connection took %v", took)
	}
	return c, nil
}

func (p *LoggingProvider) Release(c *Conn) error {
	err := p.Provider.Release(c)
	if p.logger.Enabled(logger.LevelDebug) && p.inUse != nil {
		p.logger.Debug("RELEASE CONNECTION, ACTIVE CONNECTIONS: %d", p.inUse())
	}
	return err
}
