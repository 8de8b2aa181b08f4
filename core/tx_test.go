package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartTwiceFails(t *testing.T) {
	db, _ := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ctx, tx, err := dao.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Finish()

	_, nested, err := Start(ctx, dao)
	require.ErrorIs(t, err, ErrTransactionState)
	require.Nil(t, nested)
	require.Same(t, tx, Current(ctx))
}

func TestFinishWithoutScopeFails(t *testing.T) {
	require.ErrorIs(t, Finish(context.Background()), ErrTransactionState)
}

func TestCurrentAfterFinish(t *testing.T) {
	db, cp := newTestDB(t)
	dao := NewDAO(db, "UserDAO")
	ctx := context.Background()
	require.Nil(t, Current(ctx))

	ctx, tx, err := Start(ctx, dao)
	require.NoError(t, err)
	require.Same(t, tx, Current(ctx))
	require.NotEmpty(t, tx.ID())

	require.NoError(t, Finish(ctx))
	require.Nil(t, Current(ctx))
	require.ErrorIs(t, tx.Finish(), ErrTransactionState)
	require.ErrorIs(t, Finish(ctx), ErrTransactionState)

	// no statement ran, so no connection was taken
	acquired, _ := cp.counts()
	require.Zero(t, acquired)

	// the same context chain may start again
	_, again, err := Start(ctx, dao)
	require.NoError(t, err)
	require.NoError(t, again.Finish())
}

func TestScopeUsesOneConnection(t *testing.T) {
	db, cp := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ctx, tx, err := dao.Begin(context.Background())
	require.NoError(t, err)

	_, err = dao.Update(ctx, "insertUser", 4, "dave", 22)
	require.NoError(t, err)
	n, _, err := dao.QueryForInt(ctx, "countUsers")
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
	_, err = QueryForMany(ctx, dao, "findAll", mapUser)
	require.NoError(t, err)

	acquired, released := cp.counts()
	require.Equal(t, 1, acquired)
	require.Zero(t, released)

	c, err := tx.Conn(ctx)
	require.NoError(t, err)
	require.False(t, c.AutoCommit())

	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Finish())
	acquired, released = cp.counts()
	require.Equal(t, 1, acquired)
	require.Equal(t, 1, released)
	require.True(t, c.IsClosed())
	require.Equal(t, 4, countRows(t, db))
}

func TestRollbackLeavesDatabaseUnchanged(t *testing.T) {
	db, _ := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ctx, tx, err := dao.Begin(context.Background())
	require.NoError(t, err)
	_, err = dao.Update(ctx, "insertUser", 4, "dave", 22)
	require.NoError(t, err)
	_, err = dao.Update(ctx, "deleteUser", 1)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Finish())

	require.Equal(t, 3, countRows(t, db))
	u, found, err := QueryForOne(context.Background(), dao, "findUserById", mapUser, 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", u.Name)
}

func TestFinishWithoutCommitDiscardsWork(t *testing.T) {
	db, _ := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ctx, _, err := dao.Begin(context.Background())
	require.NoError(t, err)
	_, err = dao.Update(ctx, "ageAll")
	require.NoError(t, err)
	require.NoError(t, Finish(ctx))

	var age int
	require.NoError(t, db.SQLDB().QueryRow("SELECT age FROM users WHERE id = 1").Scan(&age))
	require.Equal(t, 30, age)
}

func TestCommitKeepsScopeTransactional(t *testing.T) {
	db, _ := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ctx, tx, err := dao.Begin(context.Background())
	require.NoError(t, err)
	_, err = dao.Update(ctx, "insertUser", 4, "dave", 22)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	_, err = dao.Update(ctx, "insertUser", 5, "erin", 23)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Finish())

	require.Equal(t, 4, countRows(t, db))
}

func TestAfterCommitRunsOnCommitOnly(t *testing.T) {
	db, _ := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ctx, tx, err := dao.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Finish()

	var ran []string
	_, err = dao.Update(ctx, "insertUser", 4, "dave", 22)
	require.NoError(t, err)
	tx.AfterCommit(func(context.Context) { ran = append(ran, "first") })
	require.Empty(t, ran)
	require.NoError(t, tx.Commit(ctx))
	require.Equal(t, []string{"first"}, ran)

	// callbacks run once
	require.NoError(t, tx.Commit(ctx))
	require.Equal(t, []string{"first"}, ran)

	tx.AfterCommit(func(context.Context) { ran = append(ran, "rolled back") })
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Commit(ctx))
	require.Equal(t, []string{"first"}, ran)
}

func TestAfterCommitDroppedByHelperOnError(t *testing.T) {
	db, _ := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ran := false
	err := dao.Transaction(context.Background(), func(ctx context.Context) error {
		Current(ctx).AfterCommit(func(context.Context) { ran = true })
		return errors.New("abort")
	})
	require.Error(t, err)
	require.False(t, ran)

	err = dao.Transaction(context.Background(), func(ctx context.Context) error {
		Current(ctx).AfterCommit(func(context.Context) { ran = true })
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestReadOnlyScopeNeverBeginsTransaction(t *testing.T) {
	db, cp := newTestDB(t)
	ro := NewDAO(db, "UserDAO")

	ctx, tx, err := ro.Begin(context.Background())
	require.NoError(t, err)
	require.True(t, tx.ReadOnly())

	// commit and rollback are no-ops before and after the first statement
	require.NoError(t, tx.Commit(ctx))
	_, _, err = ro.QueryForInt(ctx, "countUsers")
	require.NoError(t, err)

	c, err := tx.Conn(ctx)
	require.NoError(t, err)
	require.True(t, c.AutoCommit())
	require.True(t, c.ReadOnly())
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Finish())

	acquired, released := cp.counts()
	require.Equal(t, 1, acquired)
	require.Equal(t, 1, released)
}

func TestFinishedScopeRejectsWork(t *testing.T) {
	db, _ := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())

	ctx, tx, err := dao.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Finish())

	_, err = tx.Conn(ctx)
	require.ErrorIs(t, err, ErrTransactionState)
	require.ErrorIs(t, tx.Commit(ctx), ErrTransactionState)
	require.ErrorIs(t, tx.Rollback(ctx), ErrTransactionState)

	// with the scope gone, statements fall back to their own connection
	n, err := dao.Update(ctx, "ageAll")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestTransactionHelper(t *testing.T) {
	db, cp := newTestDB(t)
	dao := NewDAO(db, "UserDAO", ReadWrite())
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		err := dao.Transaction(ctx, func(ctx context.Context) error {
			require.NotNil(t, Current(ctx))
			_, err := dao.Update(ctx, "insertUser", 4, "dave", 22)
			return err
		})
		require.NoError(t, err)
		require.Equal(t, 4, countRows(t, db))
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := dao.Transaction(ctx, func(ctx context.Context) error {
			if _, err := dao.Update(ctx, "deleteUser", 4); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 4, countRows(t, db))
	})

	t.Run("rollback on panic", func(t *testing.T) {
		require.PanicsWithValue(t, "kaboom", func() {
			_ = dao.Transaction(ctx, func(ctx context.Context) error {
				_, _ = dao.Update(ctx, "deleteUser", 4)
				panic("kaboom")
			})
		})
		require.Equal(t, 4, countRows(t, db))
	})

	t.Run("nested", func(t *testing.T) {
		err := dao.Transaction(ctx, func(ctx context.Context) error {
			return dao.Transaction(ctx, func(context.Context) error { return nil })
		})
		require.ErrorIs(t, err, ErrTransactionState)
	})

	acquired, released := cp.counts()
	require.Equal(t, acquired, released)
}
