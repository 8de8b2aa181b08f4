package dialect

import "fmt"

// PostgreSQL dialect implementation
type postgres struct{}

func (d *postgres) Name() string {
	return "postgres"
}

func (d *postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *postgres) ReadOnlySQL(readOnly bool) string {
	if readOnly {
		return "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY"
	}
	return "SET SESSION CHARACTERISTICS AS TRANSACTION READ WRITE"
}
