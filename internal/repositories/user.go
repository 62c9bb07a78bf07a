package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-users/internal/logger"
	"github.com/sbilibin2017/gw-users/internal/models"
)

var (
	// ErrNotFound is returned when no row matches the requested key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a write violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const redacted = "[REDACTED]"

// Repository is the data-access contract for one entity type E keyed by ID.
type Repository[E any, ID comparable] interface {
	List(ctx context.Context) ([]E, error)
	Get(ctx context.Context, id ID) (E, error)
	Add(ctx context.Context, entity E) (E, error)
	Update(ctx context.Context, entity E) (E, error)
	Delete(ctx context.Context, id ID) error
}

var _ Repository[*models.UserDB, int64] = (*UserRepository)(nil)

const userColumns = "id, name, sername, password, created_at, updated_at"

// UserRepository reads and writes the users table. Statements run inside the
// request transaction when txGetter returns one.
type UserRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewUserRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *UserRepository {
	return &UserRepository{db: db, txGetter: txGetter}
}

func (r *UserRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// List returns every user ordered by id.
func (r *UserRepository) List(ctx context.Context) ([]*models.UserDB, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY id
	`

	users := []*models.UserDB{}
	err := sqlx.SelectContext(ctx, r.executor(ctx), &users, query)

	logQuery(ctx, query, nil, len(users), err)

	if err != nil {
		return nil, err
	}
	return users, nil
}

// Get returns the user with the given id or ErrNotFound.
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.UserDB, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	var user models.UserDB
	err := sqlx.GetContext(ctx, r.executor(ctx), &user, query, id)

	logQuery(ctx, query, []any{id}, user.ToResponse(), err)

	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Add inserts user and returns the stored row with its generated id and timestamps.
// A taken name yields ErrDuplicateKey.
func (r *UserRepository) Add(ctx context.Context, user *models.UserDB) (*models.UserDB, error) {
	const query = `
		INSERT INTO users (name, sername, password, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + userColumns + `
	`

	var created models.UserDB
	err := sqlx.GetContext(ctx, r.executor(ctx), &created, query, user.Name, user.Sername, user.Password)

	logQuery(ctx, query, []any{user.Name, user.Sername, redacted}, created.ID, err)

	if err != nil {
		return nil, translate(err)
	}
	return &created, nil
}

// Update overwrites name, sername, password and updated_at of the row with
// user.ID. updated_at never moves before created_at. A missing row yields
// ErrNotFound, a taken name ErrDuplicateKey.
func (r *UserRepository) Update(ctx context.Context, user *models.UserDB) (*models.UserDB, error) {
	const query = `
		UPDATE users
		SET name = $2, sername = $3, password = $4, updated_at = GREATEST($5, created_at)
		WHERE id = $1
		RETURNING ` + userColumns + `
	`

	var updated models.UserDB
	err := sqlx.GetContext(ctx, r.executor(ctx), &updated, query,
		user.ID, user.Name, user.Sername, user.Password, user.UpdatedAt)

	logQuery(ctx, query, []any{user.ID, user.Name, user.Sername, redacted, user.UpdatedAt}, updated.ID, err)

	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

// Delete removes the row with the given id. Deleting a missing row is not an error.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = $1`

	res, err := r.executor(ctx).ExecContext(ctx, query, id)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logQuery(ctx, query, []any{id}, rowsAffected, err)

	return err
}

// translate maps driver errors onto ErrNotFound and ErrDuplicateKey.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateKey
	}
	return err
}

// logQuery logs a statement with the query collapsed to a single line.
func logQuery(ctx context.Context, query string, args []any, result any, err error) {
	logger.FromContext(ctx).Infow("query",
		"sql", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}
