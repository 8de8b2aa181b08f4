package dialect

// SQLite dialect implementation
type sqlite3 struct{}

func (d *sqlite3) Name() string {
	return "sqlite3"
}

func (d *sqlite3) Placeholder(index int) string {
	return "?"
}

// ReadOnlySQL uses query_only, which rejects writes on this connection only.
func (d *sqlite3) ReadOnlySQL(readOnly bool) string {
	if readOnly {
		return "PRAGMA query_only = ON"
	}
	return "PRAGMA query_only = OFF"
}
