package main

import (
	"context"
	"sort"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/dialect"
)

// failure 记录一条无法预编译的语句
type failure struct {
	Owner string
	Key   string
	Err   error
}

// check 在同一个只读连接上预编译目录中的每一条语句，不执行。
func check(ctx context.Context, db *core.DB) ([]failure, int, error) {
	p := db.Provider()
	c, err := p.Acquire(ctx, true)
	if err != nil {
		return nil, 0, err
	}
	defer p.Release(c)

	cat := db.Catalog()
	var failures []failure
	total := 0
	for _, owner := range cat.Owners() {
		stmts := cat.Statements(owner)
		keys := make([]string, 0, len(stmts))
		for k := range stmts {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			total++
			stmt, err := c.PrepareContext(ctx, dialect.Rebind(db.Dialect(), stmts[key]))
			if err != nil {
				failures = append(failures, failure{Owner: owner, Key: key, Err: err})
				continue
			}
			_ = stmt.Close()
		}
	}
	return failures, total, nil
}
