package dialect

import "testing"

func TestGet(t *testing.T) {
	for _, name := range []string{"mysql", "postgres", "sqlite3", "sqlserver", "oracle"} {
		d, ok := Get(name)
		if !ok {
			t.Fatalf("dialect %s not registered", name)
		}
		if d.Name() != name {
			t.Errorf("expected name %s, got %s", name, d.Name())
		}
	}

	if _, ok := Get("db2"); ok {
		t.Error("expected unknown dialect to be missing")
	}
}

func TestRebind(t *testing.T) {
	pg, _ := Get("postgres")
	ms, _ := Get("sqlserver")
	ora, _ := Get("oracle")
	my, _ := Get("mysql")

	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{
			name:    "question marks kept for mysql",
			dialect: my,
			query:   "SELECT id FROM users WHERE id = ? AND name = ?",
			want:    "SELECT id FROM users WHERE id = ? AND name = ?",
		},
		{
			name:    "postgres numbered",
			dialect: pg,
			query:   "SELECT id, name FROM users WHERE id = ? AND name = ?",
			want:    "SELECT id, name FROM users WHERE id = $1 AND name = $2",
		},
		{
			name:    "sqlserver numbered",
			dialect: ms,
			query:   "UPDATE users SET name = ? WHERE id = ?",
			want:    "UPDATE users SET name = @p1 WHERE id = @p2",
		},
		{
			name:    "oracle numbered",
			dialect: ora,
			query:   "DELETE FROM users WHERE id = ?",
			want:    "DELETE FROM users WHERE id = :1",
		},
		{
			name:    "string literal untouched",
			dialect: pg,
			query:   "SELECT '?', 'it''s ?' FROM t WHERE a = ?",
			want:    "SELECT '?', 'it''s ?' FROM t WHERE a = $1",
		},
		{
			name:    "quoted identifier untouched",
			dialect: pg,
			query:   `SELECT "what?" FROM t WHERE a = ?`,
			want:    `SELECT "what?" FROM t WHERE a = $1`,
		},
		{
			name:    "comments untouched",
			dialect: pg,
			query:   "SELECT a -- why?\nFROM t /* really? */ WHERE a = ?",
			want:    "SELECT a -- why?\nFROM t /* really? */ WHERE a = $1",
		},
		{
			name:    "no markers",
			dialect: pg,
			query:   "SELECT 1",
			want:    "SELECT 1",
		},
		{
			name:    "unterminated literal",
			dialect: pg,
			query:   "SELECT ? FROM t WHERE a = 'x?",
			want:    "SELECT $1 FROM t WHERE a = 'x?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.dialect, tt.query); got != tt.want {
				t.Errorf("Rebind(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestReadOnlySQL(t *testing.T) {
	sq, _ := Get("sqlite3")
	if got := sq.ReadOnlySQL(true); got != "PRAGMA query_only = ON" {
		t.Errorf("unexpected sqlite read-only statement %q", got)
	}
	if got := sq.ReadOnlySQL(false); got != "PRAGMA query_only = OFF" {
		t.Errorf("unexpected sqlite read-write statement %q", got)
	}

	ms, _ := Get("sqlserver")
	if got := ms.ReadOnlySQL(true); got != "" {
		t.Errorf("expected no sqlserver session statement, got %q", got)
	}
}
