package dialect

import "fmt"

// Oracle dialect implementation
type oracle struct{}

func (d *oracle) Name() string {
	return "oracle"
}

func (d *oracle) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index)
}

// ReadOnlySQL is empty: Oracle only supports SET TRANSACTION READ ONLY,
// which must be the first statement of every transaction.
func (d *oracle) ReadOnlySQL(readOnly bool) string {
	return ""
}
