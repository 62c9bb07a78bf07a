package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-users/internal/migrations"
	"github.com/sbilibin2017/gw-users/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupUserPostgresContainer(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")

	dsn := fmt.Sprintf("postgres://postgres:password@%s:%d/testdb?sslmode=disable", host, port.Int())

	var db *sqlx.DB
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)

	require.NoError(t, migrations.Run(ctx, db.DB))

	teardown := func() {
		db.Close()
		container.Terminate(ctx)
	}

	return db, teardown
}

func TestUserRepository_Postgres(t *testing.T) {
	db, teardown := setupUserPostgresContainer(t)
	defer teardown()

	repo := NewUserRepository(db, nil)
	ctx := context.Background()

	alice, err := repo.Add(ctx, &models.UserDB{Name: "alice", Sername: "Smith", Password: "salt$hash"})
	require.NoError(t, err)
	assert.NotZero(t, alice.ID)
	assert.False(t, alice.CreatedAt.IsZero())
	assert.False(t, alice.UpdatedAt.Before(alice.CreatedAt))

	t.Run("Get", func(t *testing.T) {
		got, err := repo.Get(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Name)
		assert.Equal(t, "Smith", got.Sername)
		assert.Equal(t, "salt$hash", got.Password)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get(ctx, 99999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("AddDuplicateName", func(t *testing.T) {
		_, err := repo.Add(ctx, &models.UserDB{Name: "alice", Sername: "Other", Password: "x$y"})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("Update", func(t *testing.T) {
		u := *alice
		u.Sername = "Jones"
		u.UpdatedAt = time.Now().Add(time.Second)

		updated, err := repo.Update(ctx, &u)
		require.NoError(t, err)
		assert.Equal(t, "alice", updated.Name)
		assert.Equal(t, "Jones", updated.Sername)
		assert.True(t, updated.UpdatedAt.After(alice.UpdatedAt))
		assert.True(t, updated.CreatedAt.Equal(alice.CreatedAt))
	})

	t.Run("UpdateNeverBeforeCreated", func(t *testing.T) {
		u := *alice
		u.UpdatedAt = alice.CreatedAt.Add(-time.Hour)

		updated, err := repo.Update(ctx, &u)
		require.NoError(t, err)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		_, err := repo.Update(ctx, &models.UserDB{ID: 99999, Name: "x", Sername: "y", Password: "a$b", UpdatedAt: time.Now()})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateNameCollision", func(t *testing.T) {
		bob, err := repo.Add(ctx, &models.UserDB{Name: "bob", Sername: "B", Password: "a$b"})
		require.NoError(t, err)

		bob.Name = "alice"
		bob.UpdatedAt = time.Now()
		_, err = repo.Update(ctx, bob)
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		before, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, before, 2)

		require.NoError(t, repo.Delete(ctx, 99999))
		after, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, after, 2, "deleting a missing id must not touch other rows")

		require.NoError(t, repo.Delete(ctx, alice.ID))
		_, err = repo.Get(ctx, alice.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
