package core

// AfterFinder is called on every struct StructMapper fills, after all
// columns are set. An error aborts the query.
type AfterFinder interface {
	AfterFind() error
}
