package dialect

import "fmt"

// SQL Server dialect implementation
type sqlserver struct{}

func (d *sqlserver) Name() string {
	return "sqlserver"
}

func (d *sqlserver) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

// ReadOnlySQL is empty: SQL Server routes read-only sessions through
// ApplicationIntent in the DSN, not through a session statement.
func (d *sqlserver) ReadOnlySQL(readOnly bool) string {
	return ""
}
