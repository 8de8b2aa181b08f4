package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shrek82/jdao/catalog"
	"github.com/shrek82/jdao/core"
)

func TestCheck(t *testing.T) {
	db, err := core.Open("sqlite3", filepath.Join(t.TempDir(), "check.db"), &core.Options{LogLevel: "silent"})
	require.NoError(t, err)
	defer db.Close()
	_, err = db.SQLDB().Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)

	cat := catalog.New()
	require.NoError(t, cat.RegisterAll("UserDAO", map[string]string{
		"findById": "SELECT id, name FROM users WHERE id = ?",
		"insert":   "INSERT INTO users (id, name) VALUES (?, ?)",
		"typo":     "SELECT id FROM userz",
	}))
	db.SetCatalog(cat)

	failures, total, err := check(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, failures, 1)
	require.Equal(t, "typo", failures[0].Key)
}

func TestGenerate(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.RegisterAll("UserDAO", map[string]string{
		"findUserById": "SELECT 1",
		"delete-user":  "SELECT 2",
	}))
	dir := t.TempDir()

	n, err := generate(cat, "dao", dir, false)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	src, err := os.ReadFile(filepath.Join(dir, "user_dao_keys.go"))
	require.NoError(t, err)
	require.Contains(t, string(src), "package dao")
	require.Contains(t, string(src), `UserDAOFindUserById = "findUserById"`)
	require.Contains(t, string(src), `UserDAODeleteUser   = "delete-user"`)

	n, err = generate(cat, "dao", dir, false)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestNames(t *testing.T) {
	require.Equal(t, "FindUserById", exportName("find_user.by-id"))
	require.Equal(t, "K1st", exportName("1st"))
	require.Equal(t, "user_dao", camelToSnake("UserDAO"))
	require.Equal(t, "order_item", camelToSnake("OrderItem"))
}
