package record

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changesTestPost struct {
	Id       int
	Title    string
	AuthorId int `column:"user_id"`
	Views    int
}

func TestCreate(t *testing.T) {
	t.Parallel()
	m := NewModel(changesTestPost{})

	tests := []struct {
		name     string
		build    func() *Query
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:     "pairs keep their order",
			build:    func() *Query { return m.Create("Title", "hi", "AuthorId", 1) },
			wantSQL:  `BEGIN; INSERT INTO "changes_test_posts" ("title", "user_id") VALUES ($1, $2) RETURNING "id"; COMMIT;`,
			wantArgs: []interface{}{"hi", 1},
		},
		{
			name:     "changes are sorted",
			build:    func() *Query { return m.Create(Changes{"views": 0, "title": "hi"}) },
			wantSQL:  `BEGIN; INSERT INTO "changes_test_posts" ("title", "views") VALUES ($1, $2) RETURNING "id"; COMMIT;`,
			wantArgs: []interface{}{"hi", 0},
		},
		{
			name:     "duplicates override",
			build:    func() *Query { return m.Create("title", "a", Changes{"Title": "b"}) },
			wantSQL:  `BEGIN; INSERT INTO "changes_test_posts" ("title") VALUES ($1) RETURNING "id"; COMMIT;`,
			wantArgs: []interface{}{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.build()
			if err := q.Err(); err != nil {
				t.Fatalf("Err() = %v", err)
			}
			sql, args := q.StringValues()
			if sql != tt.wantSQL {
				t.Errorf("SQL = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("Args = %v, want %v", args, tt.wantArgs)
			}
		})
	}

	for _, args := range [][]interface{}{{}, {"title"}, {42}} {
		if err := m.Create(args...).Err(); !errors.Is(err, ErrConfiguration) {
			t.Errorf("Create(%v): Err() = %v, want configuration error", args, err)
		}
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	m := NewModelTable("users")

	stmts, err := m.Find(3).Update("name", "x", "age", 30).ToSQL()
	if err != nil {
		t.Fatalf("ToSQL() error = %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("len(ToSQL()) = %d, want 2", len(stmts))
	}
	want := `BEGIN; UPDATE "users" SET "name" = $1, "age" = $2 WHERE "users"."id" = $3; COMMIT;`
	if stmts[1].SQL != want {
		t.Errorf("SQL = %q, want %q", stmts[1].SQL, want)
	}
	if !reflect.DeepEqual(stmts[1].Args, []interface{}{"x", 30, 3}) {
		t.Errorf("Args = %v", stmts[1].Args)
	}

	if err := m.All().Update("name", "x").Err(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("Update on collection: Err() = %v", err)
	}
}

func TestSave(t *testing.T) {
	t.Parallel()
	m := NewModel(changesTestPost{})

	created := m.Save("Title", "new").String()
	if want := `BEGIN; INSERT INTO "changes_test_posts" ("title") VALUES ($1) RETURNING "id"; COMMIT;`; created != want {
		t.Errorf("Save() without id = %q, want %q", created, want)
	}
	updated := m.Save(Changes{"Id": 4, "Title": "edited"}).String()
	if want := `BEGIN; UPDATE "changes_test_posts" SET "title" = $1 WHERE "changes_test_posts"."id" = $2; COMMIT;`; updated != want {
		t.Errorf("Save() with id = %q, want %q", updated, want)
	}
	if err := m.Save(1).Err(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Save(1): Err() = %v", err)
	}
}

func TestBeforeSave(t *testing.T) {
	t.Parallel()
	m := NewModelTable("users")
	require.NoError(t, m.BeforeSave(func(c Changes) error {
		c["updated_at"] = "now"
		delete(c, "ignored")
		return nil
	}))

	sql, args := m.Create("name", "a", "ignored", 1).StringValues()
	assert.Equal(t, `BEGIN; INSERT INTO "users" ("name", "updated_at") VALUES ($1, $2) RETURNING "id"; COMMIT;`, sql)
	assert.Equal(t, []interface{}{"a", "now"}, args)

	failing := NewModelTable("users")
	require.NoError(t, failing.BeforeSave(func(Changes) error { return errors.New("read only") }))
	assert.EqualError(t, failing.Create("name", "a").Err(), "read only")
}

func TestTimestampChanges(t *testing.T) {
	t.Parallel()
	m := NewModelTable("users")

	c := m.CreatedAt()
	createdAt, ok := c["created_at"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, createdAt, c["updated_at"])
	assert.Equal(t, time.UTC, createdAt.Location())
	assert.WithinDuration(t, time.Now(), createdAt, time.Minute)
	assert.Contains(t, m.UpdatedAt(), "updated_at")
}

func TestCreateExecute(t *testing.T) {
	t.Parallel()
	conn, mock := newMockDB(t)
	m := NewModel(changesTestPost{}, conn)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "changes_test_posts" ("title", "user_id") VALUES ($1, $2) RETURNING "id"`).
		WithArgs("hi", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	rows, err := m.Create("Title", "hi", "AuthorId", 1).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(42), rows[0]["id"])
	require.NoError(t, mock.ExpectationsWereMet())
}
