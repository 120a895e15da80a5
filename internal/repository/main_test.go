package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hungpv1995/posts-api/internal/models"
	"github.com/hungpv1995/posts-api/internal/store"
)

// newTestStore opens an in-memory SQLite database, capped at one connection
// so the memory database survives across calls, and applies the real
// migrations.
func newTestStore(t *testing.T) *store.DB {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{
		Driver:       store.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func newTestRepo(t *testing.T) *PostRepository {
	t.Helper()
	return NewPostRepository(newTestStore(t), nil)
}

func mustAddPost(t *testing.T, repo *PostRepository, title string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Description: "about " + title}
	require.NoError(t, repo.Add(context.Background(), post))
	return post
}
