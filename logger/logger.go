package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// Level defines the severity of the log
type Level int

const (
	LevelSilent Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel maps a config string onto a Level. Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "off":
		return LevelSilent
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Format defines the output format of the log
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Logger is the interface for logging SQL and internal messages
type Logger interface {
	SetLevel(level Level)
	SetFormat(format Format)
	SetOutput(w io.Writer)
	Enabled(level Level) bool
	WithFields(fields map[string]any) Logger
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	// SQL logs one executed statement. A non-nil err is logged at error
	// level together with the statement; otherwise the line is debug.
	SQL(sql string, duration time.Duration, err error, args ...any)
}

// baseLogger contains common logging functionality
type baseLogger struct {
	mu     *sync.Mutex
	level  Level
	format Format
	writer io.Writer
	fields map[string]any
}

func (l *baseLogger) SetLevel(level Level) {
	l.level = level
}

func (l *baseLogger) SetFormat(format Format) {
	l.format = format
}

func (l *baseLogger) SetOutput(w io.Writer) {
	l.writer = w
}

func (l *baseLogger) Enabled(level Level) bool {
	return level != LevelSilent && l.level >= level
}

func (l *baseLogger) clone() *baseLogger {
	newFields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	return &baseLogger{
		mu:     l.mu,
		level:  l.level,
		format: l.format,
		writer: l.writer,
		fields: newFields,
	}
}

// stdLogger is the default implementation of Logger
type stdLogger struct {
	baseLogger
}

// NewStdLogger creates a new standard logger
func NewStdLogger() Logger {
	return &stdLogger{
		baseLogger: baseLogger{
			mu:     &sync.Mutex{},
			level:  LevelInfo,
			format: FormatText,
			writer: os.Stdout,
			fields: make(map[string]any),
		},
	}
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	l := NewStdLogger()
	l.SetLevel(LevelSilent)
	l.SetOutput(io.Discard)
	return l
}

func (l *stdLogger) WithFields(fields map[string]any) Logger {
	newLogger := &stdLogger{
		baseLogger: *l.clone(),
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

func (l *stdLogger) Debug(format string, args ...any) {
	if l.Enabled(LevelDebug) {
		l.log("DEBUG", format, args...)
	}
}

func (l *stdLogger) Info(format string, args ...any) {
	if l.Enabled(LevelInfo) {
		l.log("INFO", format, args...)
	}
}

func (l *stdLogger) Warn(format string, args ...any) {
	if l.Enabled(LevelWarn) {
		l.log("WARN", format, args...)
	}
}

func (l *stdLogger) Error(format string, args ...any) {
	if l.Enabled(LevelError) {
		l.log("ERROR", format, args...)
	}
}

func (l *stdLogger) SQL(sql string, duration time.Duration, err error, args ...any) {
	if err != nil {
		if !l.Enabled(LevelError) {
			return
		}
		if l.format == FormatJSON {
			l.structured("ERROR", map[string]any{"sql": sql, "duration": duration.String(), "args": args, "error": err.Error()})
			return
		}
		l.log("ERROR", "[%v] %s | args: %v | error: %v", duration, sql, args, err)
		return
	}

	if !l.Enabled(LevelDebug) {
		return
	}
	if l.format == FormatJSON {
		l.structured("SQL", map[string]any{"sql": sql, "duration": duration.String(), "args": args})
		return
	}
	msg := fmt.Sprintf("[%v] %s | args: %v", duration, sql, args)
	l.write("SQL", getSQLColor(sql)+msg+ansiReset)
}

func (l *stdLogger) log(level string, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if l.format == FormatJSON {
		l.structured(level, map[string]any{"msg": msg})
		return
	}
	l.write(level, msg)
}

func (l *stdLogger) structured(level string, extra map[string]any) {
	data := make(map[string]any, len(l.fields)+len(extra)+2)
	for k, v := range l.fields {
		data[k] = v
	}
	for k, v := range extra {
		data[k] = v
	}
	data["time"] = time.Now().Format(time.RFC3339)
	data["level"] = level

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return
	}
	_ = json.NewEncoder(l.writer).Encode(data)
}

func (l *stdLogger) write(level string, msg string) {
	fieldStr := ""
	if len(l.fields) > 0 {
		fieldStr = fmt.Sprintf(" fields: %v", l.fields)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return
	}
	fmt.Fprintf(l.writer, "[JDAO] %s %s: %s%s\n", time.Now().Format("2006-01-02 15:04:05"), level, msg, fieldStr)
}

func getSQLColor(sqlStr string) string {
	s := strings.TrimSpace(strings.ToUpper(sqlStr))
	switch {
	case strings.HasPrefix(s, "SELECT"):
		return ansiYellow
	case strings.HasPrefix(s, "INSERT"), strings.HasPrefix(s, "UPDATE"):
		return ansiGreen
	case strings.HasPrefix(s, "DELETE"):
		return ansiRed
	default:
		return ansiCyan
	}
}
