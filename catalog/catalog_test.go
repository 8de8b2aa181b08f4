package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

type UserDAO struct{}

func TestRegisterLookup(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("UserDAO", "findUserById", "SELECT id, name FROM users WHERE id = ?"))

	sql, err := c.Lookup("UserDAO", "findUserById")
	require.NoError(t, err)
	require.Equal(t, "SELECT id, name FROM users WHERE id = ?", sql)

	_, err = c.Lookup("UserDAO", "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup("OrderDAO", "findUserById")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterRejectsDuplicatesAndBlanks(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("UserDAO", "k", "SELECT 1"))
	require.ErrorIs(t, c.Register("UserDAO", "k", "SELECT 2"), ErrDuplicate)
	require.ErrorIs(t, c.Register("UserDAO", "blank", "   "), ErrEmpty)
	require.ErrorIs(t, c.Register("", "k", "SELECT 1"), ErrEmpty)
}

func TestRequireReportsAllMissingKeys(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterAll("UserDAO", map[string]string{
		"findUserById": "SELECT id, name FROM users WHERE id = ?",
	}))

	require.NoError(t, c.Require("UserDAO", "findUserById"))

	err := c.Require("UserDAO", "findUserById", "deleteUser", "renameUser")
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "deleteUser, renameUser")

	require.ErrorIs(t, c.Require("Nobody"), ErrNotFound)
}

func TestLoadProperties(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "UserDAO.properties")
	content := "# user statements\n" +
		"findUserById = SELECT id, name FROM users WHERE id = ?\n" +
		"findByTag = SELECT id FROM users \\\n" +
		"    WHERE tag = '${literal}'\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	c := New()
	require.NoError(t, c.LoadProperties("", file))

	sql, err := c.Lookup("UserDAO", "findUserById")
	require.NoError(t, err)
	require.Equal(t, "SELECT id, name FROM users WHERE id = ?", sql)

	sql, err = c.Lookup("UserDAO", "findByTag")
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM users WHERE tag = '${literal}'", sql)

	require.Error(t, c.LoadProperties("X", filepath.Join(dir, "absent.properties")))
}

func TestLoadTOML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "catalog.toml")
	content := `
[UserDAO]
findUserById = "SELECT id, name FROM users WHERE id = ?"
renameUser = "UPDATE users SET name = ? WHERE id = ?"

[OrderDAO]
countOrders = "SELECT COUNT(*) FROM orders"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	c := New()
	require.NoError(t, c.LoadTOML(file))
	require.Equal(t, []string{"OrderDAO", "UserDAO"}, c.Owners())
	require.NoError(t, c.Require("UserDAO", "findUserById", "renameUser"))
	require.Len(t, c.Statements("OrderDAO"), 1)
}

func TestLoadTOMLRejectsNonTables(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(file, []byte(`stray = "SELECT 1"`), 0o644))
	require.Error(t, New().LoadTOML(file))
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/UserDAO.properties": {Data: []byte("findUserById=SELECT id, name FROM users WHERE id = ?\n")},
		"sql/orders.toml":        {Data: []byte("[OrderDAO]\ncountOrders = \"SELECT COUNT(*) FROM orders\"\n")},
		"sql/README.md":          {Data: []byte("ignored")},
	}

	c := New()
	require.NoError(t, c.LoadFS(fsys, "sql"))
	require.NoError(t, c.Require("UserDAO", "findUserById"))
	require.NoError(t, c.Require("OrderDAO", "countOrders"))
}

func TestOwnerOf(t *testing.T) {
	require.Equal(t, "UserDAO", OwnerOf(&UserDAO{}))
	require.Equal(t, "UserDAO", OwnerOf(UserDAO{}))
	require.Equal(t, "", OwnerOf(nil))
}
