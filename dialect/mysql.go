package dialect

// MySQL dialect implementation
type mysql struct{}

func (d *mysql) Name() string {
	return "mysql"
}

func (d *mysql) Placeholder(index int) string {
	return "?"
}

func (d *mysql) ReadOnlySQL(readOnly bool) string {
	if readOnly {
		return "SET SESSION TRANSACTION READ ONLY"
	}
	return "SET SESSION TRANSACTION READ WRITE"
}
