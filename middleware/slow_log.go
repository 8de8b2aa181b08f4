package middleware

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shrek82/jdao/core"
)

// SlowLogMiddleware logs statements that take longer than the specified
// threshold, connection acquisition included.
type SlowLogMiddleware struct {
	Threshold time.Duration
	LogPath   string
	logger    *log.Logger
	file      *os.File
}

// NewSlowLog creates a new SlowLogMiddleware.
// threshold: statements taking longer than this will be logged.
// logPath: path to the log file. If empty, logs to standard output.
func NewSlowLog(threshold time.Duration, logPath string) *SlowLogMiddleware {
	return &SlowLogMiddleware{
		Threshold: threshold,
		LogPath:   logPath,
	}
}

// SetOutput sets the output destination for the logger.
func (m *SlowLogMiddleware) SetOutput(w io.Writer) {
	m.logger = log.New(w, "[SLOW SQL] ", log.LstdFlags)
}

func (m *SlowLogMiddleware) Name() string {
	return "SlowLog"
}

func (m *SlowLogMiddleware) Init(db *core.DB) error {
	if m.logger != nil {
		return nil
	}
	if m.LogPath == "" {
		m.logger = log.New(os.Stdout, "[SLOW SQL] ", log.LstdFlags)
		return nil
	}
	f, err := os.OpenFile(m.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open slow log file: %w", err)
	}
	m.file = f
	m.logger = log.New(f, "[SLOW SQL] ", log.LstdFlags)
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	if m.file == nil {
		return nil
	}
	f := m.file
	m.file = nil
	return f.Close()
}

func (m *SlowLogMiddleware) Process(ctx context.Context, stmt *core.Statement, next core.StatementFunc) (*core.Result, error) {
	start := time.Now()
	res, err := next(ctx, stmt)
	duration := time.Since(start)

	if duration >= m.Threshold {
		var rows int64
		cached := false
		if res != nil {
			rows, cached = res.RowsAffected, res.Cached
		}
		m.logger.Printf("duration=%v | stmt=%s.%s | kind=%s | tx=%s | sql=%s | args=%v | rows=%d | cached=%t | err=%v",
			duration, stmt.Owner, stmt.Key, stmt.Kind, stmt.TxID, stmt.SQL, stmt.Args, rows, cached, err)
	}
	return res, err
}
