package jdao_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shrek82/jdao"
)

type User struct {
	ID   int64
	Name string
}

// UserDAO keeps its SQL in the catalog under the owner "UserDAO".
type UserDAO struct {
	*jdao.DAO
}

func (d *UserDAO) FindUserByID(ctx context.Context, id int64) (User, bool, error) {
	return jdao.QueryForOne(ctx, d.DAO, "findUserById", func(row jdao.Row) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Name)
		return u, err
	}, id)
}

func (d *UserDAO) Rename(ctx context.Context, id int64, name string) (int64, error) {
	return d.Update(ctx, "rename", name, id)
}

func Example() {
	dir, _ := os.MkdirTemp("", "jdao-example")
	defer os.RemoveAll(dir)

	db, err := jdao.Open("sqlite3", filepath.Join(dir, "app.db"), &jdao.Options{LogLevel: "silent"})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer db.Close()
	_, _ = db.SQLDB().Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	_, _ = db.SQLDB().Exec("INSERT INTO users (id, name) VALUES (1, 'alice')")

	cat := jdao.NewCatalog()
	_ = cat.RegisterAll("UserDAO", map[string]string{
		"findUserById": "SELECT id, name FROM users WHERE id = ?",
		"rename":       "UPDATE users SET name = ? WHERE id = ?",
	})
	db.SetCatalog(cat)

	users := &UserDAO{jdao.NewDAOFor(db, UserDAO{}, jdao.ReadWrite())}
	if err := users.Require("findUserById", "rename"); err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	err = users.Transaction(ctx, func(ctx context.Context) error {
		_, err := users.Rename(ctx, 1, "alicia")
		return err
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	u, found, err := users.FindUserByID(ctx, 1)
	fmt.Println(u.Name, found, err)
	// Output: alicia true <nil>
}
