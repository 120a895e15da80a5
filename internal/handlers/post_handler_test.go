package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungpv1995/posts-api/internal/models"
	"github.com/hungpv1995/posts-api/internal/repository"
	"github.com/hungpv1995/posts-api/internal/store"
)

type testAPI struct {
	router *mux.Router
	repo   *repository.PostRepository
}

func newTestAPI(t *testing.T) *testAPI {
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

	repo := repository.NewPostRepository(db, nil)
	h := NewPostHandler(repo, nil, false)

	r := mux.NewRouter()
	r.Use(RequestID)
	h.Register(r.PathPrefix("/api/v1").Subrouter())

	return &testAPI{router: r, repo: repo}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func seedPosts(t *testing.T, a *testAPI, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		post := &models.Post{Title: fmt.Sprintf("Post number %d", i)}
		require.NoError(t, a.repo.Add(context.Background(), post))
	}
}

func TestCreatePostReturnsCreatedWithAssignedID(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/posts", models.Post{Title: "Alpha", Description: "d"})

	require.Equal(t, http.StatusCreated, rec.Code)
	post := decodeInto[models.Post](t, rec)
	assert.Equal(t, int64(1), post.ID)
	assert.Equal(t, int64(1), post.Version)
	assert.Equal(t, "Alpha", post.Title)
	assert.Equal(t, "/api/v1/posts/1", rec.Header().Get("Location"))
}

func TestCreatePostDuplicateTitleIsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusCreated,
		api.do(t, http.MethodPost, "/api/v1/posts", models.Post{Title: "Alpha"}).Code)

	rec := api.do(t, http.MethodPost, "/api/v1/posts", models.Post{Title: "Alpha"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alpha")
}

func TestCreatePostValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/posts", models.Post{Title: "bad title!"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	p := decodeInto[problem](t, rec)
	assert.Contains(t, p.Errors, "title")
}

func TestGetPostRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 1)

	rec := api.do(t, http.MethodGet, "/api/v1/posts/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	post := decodeInto[models.Post](t, rec)
	assert.Equal(t, "Post number 1", post.Title)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/posts/999", nil).Code)
}

func TestListPostsWithoutPagingReturnsAll(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 3)

	rec := api.do(t, http.MethodGet, "/api/v1/posts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decodeInto[[]models.Post](t, rec)
	assert.Len(t, posts, 3)
}

func TestListPostsFirstPage(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 12)

	rec := api.do(t, http.MethodGet, "/api/v1/posts?pageIndex=0&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decodeInto[models.PaginatedItems[models.Post]](t, rec)
	assert.Equal(t, 0, page.PageIndex)
	assert.Equal(t, 5, page.PageSize)
	assert.Equal(t, int64(12), page.TotalItems)

	ids := make([]int64, 0, len(page.Items))
	for _, p := range page.Items {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{12, 11, 10, 9, 8}, ids)
	assert.Contains(t, page.NextPage, "pageIndex=1")
	assert.Contains(t, page.NextPage, "pageSize=5")
}

func TestListPostsLastPage(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 12)

	rec := api.do(t, http.MethodGet, "/api/v1/posts?pageIndex=2&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decodeInto[models.PaginatedItems[models.Post]](t, rec)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, int64(12), page.TotalItems)

	ids := make([]int64, 0, len(page.Items))
	for _, p := range page.Items {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{2, 1}, ids)
	assert.Empty(t, page.NextPage)
}

func TestListPostsRejectsBadPagingParams(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 1)

	for _, query := range []string{
		"pageIndex=-1&pageSize=5",
		"pageIndex=0&pageSize=-1",
		"pageIndex=0&pageSize=0",
		"pageIndex=abc",
	} {
		rec := api.do(t, http.MethodGet, "/api/v1/posts?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", query)
	}
}

func TestListPostsWithTitle(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.repo.Add(context.Background(), &models.Post{Title: "Alpha"}))
	require.NoError(t, api.repo.Add(context.Background(), &models.Post{Title: "Beta"}))

	rec := api.do(t, http.MethodGet, "/api/v1/posts/withtitle/al?pageIndex=0&pageSize=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decodeInto[models.PaginatedItems[models.Post]](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Alpha", page.Items[0].Title)
	assert.Equal(t, int64(1), page.TotalItems)

	rec = api.do(t, http.MethodGet, "/api/v1/posts/withtitle/%20?pageIndex=0&pageSize=5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePost(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 1)

	rec := api.do(t, http.MethodPut, "/api/v1/posts/1", models.Post{Title: "Renamed post"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got := decodeInto[models.Post](t, api.do(t, http.MethodGet, "/api/v1/posts/1", nil))
	assert.Equal(t, "Renamed post", got.Title)
	assert.Equal(t, int64(2), got.Version)
}

func TestUpdateMissingPostIsNotFound(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/posts/999", models.Post{Title: "Whatever"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDuplicateTitleIsBadRequest(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.repo.Add(context.Background(), &models.Post{Title: "Alpha"}))
	require.NoError(t, api.repo.Add(context.Background(), &models.Post{Title: "Beta"}))

	rec := api.do(t, http.MethodPut, "/api/v1/posts/2", models.Post{Title: "ALPHA"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStaleVersionIsConflict(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 1)

	stale := models.Post{Title: "Stale rename"}
	stale.Version = 1

	require.Equal(t, http.StatusNoContent,
		api.do(t, http.MethodPut, "/api/v1/posts/1", models.Post{Title: "Fresh rename"}).Code)

	rec := api.do(t, http.MethodPut, "/api/v1/posts/1", stale)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeletePost(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 1)

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/api/v1/posts/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/posts/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodDelete, "/api/v1/posts/1", nil).Code)
}

func TestCommentsSubResource(t *testing.T) {
	api := newTestAPI(t)
	seedPosts(t, api, 1)

	rec := api.do(t, http.MethodGet, "/api/v1/posts/1/comments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/v1/posts/1/comments",
		models.Comment{Author: "ann", Content: "first"})
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decodeInto[models.Comment](t, rec)
	assert.Equal(t, int64(1), comment.ID)
	assert.Equal(t, "ann", comment.Author)

	comments := decodeInto[[]models.Comment](t, api.do(t, http.MethodGet, "/api/v1/posts/1/comments", nil))
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].Content)

	assert.Equal(t, http.StatusNotFound,
		api.do(t, http.MethodGet, "/api/v1/posts/999/comments", nil).Code)
	assert.Equal(t, http.StatusNotFound,
		api.do(t, http.MethodPost, "/api/v1/posts/999/comments", models.Comment{Content: "x"}).Code)
}
