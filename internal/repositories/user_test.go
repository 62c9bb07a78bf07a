package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-users/internal/logger"
	"github.com/sbilibin2017/gw-users/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var userRowColumns = []string{"id", "name", "sername", "password", "created_at", "updated_at"}

// collapsedQueryMatcher matches the expected regexp against the actual query
// with its whitespace collapsed, the same form the repository logs.
var collapsedQueryMatcher = sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
	actual := strings.Join(strings.Fields(actualSQL), " ")
	re, err := regexp.Compile(expectedSQL)
	if err != nil {
		return err
	}
	if !re.MatchString(actual) {
		return fmt.Errorf("could not match actual sql %q with expected regexp %q", actual, expectedSQL)
	}
	return nil
})

func newMockRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(collapsedQueryMatcher))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewUserRepository(sqlx.NewDb(db, "sqlmock"), nil), mock
}

func TestUserRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "alice", "Smith", "salt$hash", now, now).
			AddRow(2, "bob", "Jones", "salt$hash", now, now))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Name)
	assert.Equal(t, int64(2), users[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserRepository_List_Error(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).WillReturnError(errors.New("connection reset"))

	users, err := repo.List(context.Background())
	assert.EqualError(t, err, "connection reset")
	assert.Nil(t, users)
}

func TestUserRepository_Get(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "found",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(1, "alice", "Smith", "salt$hash", now, now))
			},
		},
		{
			name: "not found",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows(userRowColumns))
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			user, err := repo.Get(context.Background(), 1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "alice", user.Name)
				assert.Equal(t, "salt$hash", user.Password)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Add(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "inserted",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name, sername, password, created_at, updated_at)")).
					WithArgs("alice", "Smith", "salt$hash").
					WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(10, "alice", "Smith", "salt$hash", now, now))
			},
		},
		{
			name: "duplicate name",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ix_users_name"})
			},
			wantErr: ErrDuplicateKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			user, err := repo.Add(context.Background(), &models.UserDB{Name: "alice", Sername: "Smith", Password: "salt$hash"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(10), user.ID)
				assert.Equal(t, now, user.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Update(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)

	tests := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "updated",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("UPDATE users SET name = $2, sername = $3, password = $4, updated_at = GREATEST($5, created_at)")).
					WithArgs(int64(3), "alice", "Jones", "salt$hash", updated).
					WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(3, "alice", "Jones", "salt$hash", created, updated))
			},
		},
		{
			name: "missing row",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("UPDATE users")).WillReturnRows(sqlmock.NewRows(userRowColumns))
			},
			wantErr: ErrNotFound,
		},
		{
			name: "name taken",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("UPDATE users")).WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: ErrDuplicateKey,
		},
		{
			name: "other error",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta("UPDATE users")).WillReturnError(&pgconn.PgError{Code: "57014"})
			},
			wantErr: &pgconn.PgError{Code: "57014"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			user, err := repo.Update(context.Background(), &models.UserDB{
				ID: 3, Name: "alice", Sername: "Jones", Password: "salt$hash", UpdatedAt: updated,
			})
			if tt.wantErr != nil {
				assert.Error(t, err)
				var pgErr *pgconn.PgError
				if errors.As(tt.wantErr, &pgErr) {
					assert.NotErrorIs(t, err, ErrNotFound)
					assert.NotErrorIs(t, err, ErrDuplicateKey)
				} else {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Jones", user.Sername)
				assert.Equal(t, updated, user.UpdatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not an error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.Delete(context.Background(), 5))
	})

	t.Run("error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).WillReturnError(errors.New("boom"))

		assert.EqualError(t, repo.Delete(context.Background(), 5), "boom")
	})
}

func TestUserRepository_UsesTransactionFromContext(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(collapsedQueryMatcher))
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	type txKey struct{}
	ctx := context.WithValue(context.Background(), txKey{}, tx)
	repo := NewUserRepository(sqlxDB, func(ctx context.Context) *sqlx.Tx {
		tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
		return tx
	})

	require.NoError(t, repo.Delete(ctx, 1))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_QueryLog(t *testing.T) {
	originalLog := logger.Log
	defer func() { logger.Log = originalLog }()

	core, logs := observer.New(zapcore.InfoLevel)
	logger.Log = zap.New(core).Sugar()

	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", "Smith", "salt$hash").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(10, "alice", "Smith", "salt$hash", now, now))

	ctx := logger.WithRequestID(context.Background(), "req-7")
	_, err := repo.Add(ctx, &models.UserDB{Name: "alice", Sername: "Smith", Password: "salt$hash"})
	require.NoError(t, err)

	entries := logs.FilterMessage("query").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.NotContains(t, fmt.Sprint(fields["args"]), "salt$hash")
	assert.Contains(t, fmt.Sprint(fields["args"]), "[REDACTED]")
}
