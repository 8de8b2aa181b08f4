package dialect

import (
	"strings"
	"sync"
)

// Dialect captures the database-specific bits the data-access layer needs:
// how positional parameters are written and how a pooled session is switched
// between read-only and read-write.
type Dialect interface {
	// Name returns the driver name the dialect is registered under.
	Name() string
	// Placeholder returns the positional parameter marker for the 1-based index.
	Placeholder(index int) string
	// ReadOnlySQL returns the session statement that marks the connection
	// read-only (or read-write). An empty string means the database has no
	// session-level switch and the flag is only tracked locally.
	ReadOnlySQL(readOnly bool) string
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

func init() {
	Register("mysql", &mysql{})
	Register("postgres", &postgres{})
	Register("sqlite3", &sqlite3{})
	Register("sqlserver", &sqlserver{})
	Register("oracle", &oracle{})
}

// Register registers a new dialect for a given driver name
func Register(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// Rebind rewrites the '?' markers of a catalog statement into the dialect's
// placeholder syntax. Markers inside quoted literals, quoted identifiers and
// comments are left alone.
func Rebind(d Dialect, query string) string {
	if d == nil || d.Placeholder(1) == "?" || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	index := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch c {
		case '\'', '"', '`':
			end := skipQuoted(query, i, c)
			b.WriteString(query[i:end])
			i = end - 1
		case '-':
			if i+1 < len(query) && query[i+1] == '-' {
				end := strings.IndexByte(query[i:], '\n')
				if end < 0 {
					end = len(query)
				} else {
					end += i
				}
				b.WriteString(query[i:end])
				i = end - 1
				continue
			}
			b.WriteByte(c)
		case '/':
			if i+1 < len(query) && query[i+1] == '*' {
				end := strings.Index(query[i+2:], "*/")
				if end < 0 {
					end = len(query)
				} else {
					end += i + 4
				}
				b.WriteString(query[i:end])
				i = end - 1
				continue
			}
			b.WriteByte(c)
		case '?':
			index++
			b.WriteString(d.Placeholder(index))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// skipQuoted returns the index just past the literal opened at start.
// A doubled quote character is an escaped quote.
func skipQuoted(query string, start int, quote byte) int {
	for i := start + 1; i < len(query); i++ {
		if query[i] != quote {
			continue
		}
		if i+1 < len(query) && query[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(query)
}
