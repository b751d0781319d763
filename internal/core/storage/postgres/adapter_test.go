package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aevon-lab/knocklog/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Get(t *testing.T) {
	tests := []struct {
		name       string
		mockResult func(mock sqlmock.Sqlmock)
		assertions func(t *testing.T, value string, err error)
	}{
		{
			name: "returns stored value",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryGetValue)).
					WithArgs("events").
					WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"version":1,"events":[]}`))
			},
			assertions: func(t *testing.T, value string, err error) {
				require.NoError(t, err)
				require.Equal(t, `{"version":1,"events":[]}`, value)
			},
		},
		{
			name: "missing row maps to not found",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryGetValue)).
					WithArgs("events").
					WillReturnRows(sqlmock.NewRows([]string{"value"}))
			},
			assertions: func(t *testing.T, _ string, err error) {
				require.ErrorIs(t, err, storage.ErrNotFound)
			},
		},
		{
			name: "query error is wrapped",
			mockResult: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryGetValue)).
					WithArgs("events").
					WillReturnError(errors.New("connection reset"))
			},
			assertions: func(t *testing.T, _ string, err error) {
				require.Error(t, err)
				require.NotErrorIs(t, err, storage.ErrNotFound)
				require.ErrorContains(t, err, "connection reset")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.mockResult(mock)
			value, err := adapter.Get(context.Background(), "events")
			tc.assertions(t, value, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_Set(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(querySetValue)).
		WithArgs("events", `{"version":1,"events":[]}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Set(context.Background(), "events", `{"version":1,"events":[]}`))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SetWrapsExecError(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	execErr := errors.New("disk full")
	mock.ExpectExec(regexp.QuoteMeta(querySetValue)).
		WithArgs("events", "[]").
		WillReturnError(execErr)

	err := adapter.Set(context.Background(), "events", "[]")
	require.ErrorIs(t, err, execErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SetRejectsInvalidKey(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	require.Error(t, adapter.Set(context.Background(), "bad key", "[]"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewAdapter_ValidatesSchema(t *testing.T) {
	t.Run("missing table", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(querySchemaExists)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err = NewAdapter(db)
		require.ErrorContains(t, err, "kv_store table does not exist")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("prepares statements", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta(querySchemaExists)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectPrepare(regexp.QuoteMeta(queryGetValue))
		mock.ExpectPrepare(regexp.QuoteMeta(querySetValue))

		adapter, err := NewAdapter(db)
		require.NoError(t, err)
		require.Same(t, db, adapter.DB())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbCloseErr := errors.New("db close failed")

	mock.ExpectPrepare(regexp.QuoteMeta(queryGetValue)).WillBeClosed()
	stmtGet, err := db.Prepare(queryGetValue)
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(querySetValue)).WillBeClosed()
	stmtSet, err := db.Prepare(querySetValue)
	require.NoError(t, err)

	mock.ExpectClose().WillReturnError(dbCloseErr)

	adapter := &Adapter{
		db:      db,
		stmtGet: stmtGet,
		stmtSet: stmtSet,
	}

	err = adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:      db,
		stmtGet: mustPrepareStmt(t, db, mock, queryGetValue),
		stmtSet: mustPrepareStmt(t, db, mock, querySetValue),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)

	return stmt
}
