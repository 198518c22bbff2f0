package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gopsql/logger"
	"github.com/gopsql/standard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createUsers struct{}

func (createUsers) Change(s *Schema) {
	s.CreateTable("users", func(t *Table) {
		t.String("name")
	})
}

func newTestRunner(t *testing.T) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	registry := NewRegistry()
	require.NoError(t, registry.Register("20240101000000_create_users", createUsers{}))
	require.NoError(t, registry.Register("20240102000000_add_email_to_users", Funcs{
		UpFunc: func(s *Schema) {
			s.AddColumn("users", "email", "string")
			s.AddIndex("users", "email", Unique())
		},
		DownFunc: func(s *Schema) {
			s.RemoveIndex("users", "email")
			s.RemoveColumn("users", "email")
		},
	}))
	return NewRunner(standard.NewDB("postgres", conn), registry, logger.StandardLogger), mock
}

func expectApplied(mock sqlmock.Sqlmock, versions ...string) {
	rows := sqlmock.NewRows([]string{"version"})
	for _, v := range versions {
		rows.AddRow(v)
	}
	mock.ExpectQuery(`SELECT version FROM "schema_migrations" ORDER BY version`).WillReturnRows(rows)
}

func TestRunnerInit(t *testing.T) {
	r, mock := newTestRunner(t)
	mock.ExpectQuery(`CREATE TABLE IF NOT EXISTS "schema_migrations" (version VARCHAR(255) PRIMARY KEY)`).
		WillReturnRows(sqlmock.NewRows([]string{}))
	require.NoError(t, r.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerUp(t *testing.T) {
	r, mock := newTestRunner(t)
	expectApplied(mock, "20240101000000_create_users")
	mock.ExpectBegin()
	mock.ExpectQuery(`ALTER TABLE "users" ADD COLUMN "email" VARCHAR(255)`).WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery(`CREATE UNIQUE INDEX IF NOT EXISTS "idx_users_email" ON "users" ("email")`).WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery(`INSERT INTO "schema_migrations" (version) VALUES ($1)`).
		WithArgs("20240102000000_add_email_to_users").
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectCommit()

	done, err := r.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102000000_add_email_to_users"}, done)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerUpStopsOnFailure(t *testing.T) {
	r, mock := newTestRunner(t)
	expectApplied(mock)
	mock.ExpectBegin()
	mock.ExpectQuery(`CREATE TABLE "users" ("id" SERIAL PRIMARY KEY, "name" VARCHAR(255))`).
		WillReturnError(errors.New(`relation "users" already exists`))
	mock.ExpectRollback()

	done, err := r.Up(context.Background())
	assert.Empty(t, done)
	assert.EqualError(t, err, `migrate: 20240101000000_create_users: relation "users" already exists`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerDown(t *testing.T) {
	r, mock := newTestRunner(t)
	expectApplied(mock, "20240101000000_create_users")
	mock.ExpectBegin()
	mock.ExpectQuery(`DROP TABLE IF EXISTS "users"`).WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery(`DELETE FROM "schema_migrations" WHERE version = $1`).
		WithArgs("20240101000000_create_users").
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectCommit()

	done, err := r.Down(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101000000_create_users"}, done)
	require.NoError(t, mock.ExpectationsWereMet())
}

type removeUserName struct{}

func (removeUserName) Change(s *Schema) {
	s.RemoveColumn("users", "name")
}

func TestRunnerDownIrreversible(t *testing.T) {
	r, mock := newTestRunner(t)
	require.NoError(t, r.registry.Register("20240103000000_remove_name_from_users", removeUserName{}))
	expectApplied(mock, "20240101000000_create_users", "20240103000000_remove_name_from_users")

	done, err := r.Down(context.Background(), 1)
	assert.Empty(t, done)
	assert.ErrorIs(t, err, ErrIrreversible)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerStatus(t *testing.T) {
	r, mock := newTestRunner(t)
	expectApplied(mock, "20231231000000_legacy", "20240101000000_create_users")

	status, err := r.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Status{
		{Version: "20231231000000_legacy", Applied: true, Missing: true},
		{Version: "20240101000000_create_users", Applied: true},
		{Version: "20240102000000_add_email_to_users"},
	}, status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register("1", struct{}{}), ErrInvalidMigration)
	assert.ErrorIs(t, r.Register("", createUsers{}), ErrInvalidMigration)
	require.NoError(t, r.Register("2", createUsers{}))
	require.NoError(t, r.Register("1", Funcs{}))
	assert.ErrorIs(t, r.Register("2", createUsers{}), ErrDuplicateVersion)
	assert.Equal(t, []string{"1", "2"}, r.Versions())

	_, err := r.Statements("3", Up)
	assert.ErrorIs(t, err, ErrUnknownVersion)
	stmts, err := r.Statements("1", Down)
	require.NoError(t, err)
	assert.Empty(t, stmts)
}
