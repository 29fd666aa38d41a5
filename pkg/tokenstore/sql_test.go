package tokenstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/handoff/pkg/sso"
)

var sqlTestNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func setupSQLStoreTest(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewSQLStore(db)
	store.now = func() time.Time { return sqlTestNow }

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return store, mock
}

func TestSQLStore_Migrate(t *testing.T) {
	store, mock := setupSQLStoreTest(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sso_tokens")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
}

func TestSQLStore_Put(t *testing.T) {
	store, mock := setupSQLStoreTest(t)

	mock.ExpectExec(regexp.QuoteMeta(putQuery)).
		WithArgs("sso_token.ABC", "ABC", "alice", sqlTestNow.Add(5*time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Put(context.Background(), "sso_token.ABC", &sso.SSOToken{Token: "ABC", UID: "alice"}, 5*time.Minute)
	require.NoError(t, err)
}

func TestSQLStore_PutError(t *testing.T) {
	store, mock := setupSQLStoreTest(t)

	mock.ExpectExec(regexp.QuoteMeta(putQuery)).
		WillReturnError(errors.New("connection refused"))

	err := store.Put(context.Background(), "k", &sso.SSOToken{Token: "T", UID: "u"}, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSQLStore_PutValidation(t *testing.T) {
	store, _ := setupSQLStoreTest(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, "k", nil, time.Minute), ErrNilToken)
	assert.ErrorIs(t, store.Put(ctx, "k", &sso.SSOToken{Token: "T", UID: "u"}, 0), ErrInvalidTTL)
}

func TestSQLStore_Get(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		want    *sso.SSOToken
		wantErr bool
	}{
		{
			name: "hit",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
					WithArgs("sso_token.ABC", sqlTestNow).
					WillReturnRows(sqlmock.NewRows([]string{"token", "uid"}).AddRow("ABC", "alice"))
			},
			want: &sso.SSOToken{Token: "ABC", UID: "alice"},
		},
		{
			name: "miss",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
					WithArgs("sso_token.ABC", sqlTestNow).
					WillReturnRows(sqlmock.NewRows([]string{"token", "uid"}))
			},
			want: nil,
		},
		{
			name: "database error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
					WithArgs("sso_token.ABC", sqlTestNow).
					WillReturnError(errors.New("database unavailable"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := setupSQLStoreTest(t)
			tt.setup(mock)

			got, err := store.Get(context.Background(), "sso_token.ABC")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLStore_GetDel(t *testing.T) {
	store, mock := setupSQLStoreTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(getDelQuery)).
		WithArgs("sso_token.ABC", sqlTestNow).
		WillReturnRows(sqlmock.NewRows([]string{"token", "uid"}).AddRow("ABC", "alice"))
	mock.ExpectQuery(regexp.QuoteMeta(getDelQuery)).
		WithArgs("sso_token.ABC", sqlTestNow).
		WillReturnRows(sqlmock.NewRows([]string{"token", "uid"}))

	got, err := store.GetDel(context.Background(), "sso_token.ABC")
	require.NoError(t, err)
	assert.Equal(t, &sso.SSOToken{Token: "ABC", UID: "alice"}, got)

	got, err = store.GetDel(context.Background(), "sso_token.ABC")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLStore_Sweep(t *testing.T) {
	store, mock := setupSQLStoreTest(t)

	mock.ExpectExec(regexp.QuoteMeta(sweepQuery)).
		WithArgs(sqlTestNow).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestSQLStore_SweepError(t *testing.T) {
	store, mock := setupSQLStoreTest(t)

	mock.ExpectExec(regexp.QuoteMeta(sweepQuery)).
		WillReturnError(errors.New("lock timeout"))

	n, err := store.Sweep(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestSQLStore_Backend(t *testing.T) {
	store, _ := setupSQLStoreTest(t)
	assert.Equal(t, BackendPostgres, store.Backend())
	assert.NotNil(t, store.DB())
}
