// Package handlers exposes the posts repository as a versioned HTTP
// resource API and carries the request middleware.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hungpv1995/posts-api/internal/logging"
	"github.com/hungpv1995/posts-api/internal/models"
	"github.com/hungpv1995/posts-api/internal/repository"
)

const defaultPageSize = 5

type PostHandler struct {
	repo       *repository.PostRepository
	log        logging.Logger
	production bool
}

func NewPostHandler(repo *repository.PostRepository, log logging.Logger, production bool) *PostHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PostHandler{repo: repo, log: log, production: production}
}

// Register mounts the post routes on the given (already version-prefixed)
// router. The id pattern keeps /posts/withtitle from colliding with
// /posts/{id}.
func (h *PostHandler) Register(r *mux.Router) {
	r.HandleFunc("/posts", h.ListPosts).Methods(http.MethodGet)
	r.HandleFunc("/posts", h.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/posts/withtitle/{title}", h.ListPostsWithTitle).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}", h.GetPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}", h.UpdatePost).Methods(http.MethodPut)
	r.HandleFunc("/posts/{id:[0-9]+}", h.DeletePost).Methods(http.MethodDelete)
	r.HandleFunc("/posts/{id:[0-9]+}/comments", h.ListComments).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id:[0-9]+}/comments", h.CreateComment).Methods(http.MethodPost)
}

// ListPosts handles GET /posts. Without a pageIndex query parameter it
// returns the whole collection; with one it returns a page window, where
// pageSize defaults to 5.
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("pageIndex") == "" {
		h.listAllPosts(w, r)
		return
	}

	pageIndex, pageSize, ok := h.pagingParams(w, r)
	if !ok {
		return
	}

	page, err := h.repo.GetAllPaged(r.Context(), pageIndex, pageSize, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishPage(page, r, pageIndex, pageSize)
	writeJSON(w, http.StatusOK, page)
}

func (h *PostHandler) listAllPosts(w http.ResponseWriter, r *http.Request) {
	posts := []*models.Post{}
	for post, err := range h.repo.GetAll(r.Context()) {
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		posts = append(posts, post)
	}
	h.log.Debug(r.Context(), "retrieved posts", "count", len(posts))
	writeJSON(w, http.StatusOK, posts)
}

// ListPostsWithTitle handles GET /posts/withtitle/{title}: a paged,
// case-insensitive substring match on the title.
func (h *PostHandler) ListPostsWithTitle(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(mux.Vars(r)["title"])
	if title == "" {
		writeProblem(w, http.StatusBadRequest, "title must not be blank",
			map[string][]string{"title": {"must not be blank"}})
		return
	}

	pageIndex, pageSize, ok := h.pagingParams(w, r)
	if !ok {
		return
	}

	page, err := h.repo.GetAllPaged(r.Context(), pageIndex, pageSize, repository.TitleContains(title))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.finishPage(page, r, pageIndex, pageSize)
	writeJSON(w, http.StatusOK, page)
}

// GetPost handles GET /posts/{id}.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	post, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /posts.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var post models.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	post.Entity = models.Entity{} // id and version are server-assigned

	if err := post.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.repo.Add(r.Context(), &post); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info(r.Context(), "post added", "id", post.ID)
	w.Header().Set("Location", fmt.Sprintf("%s/%d", r.URL.Path, post.ID))
	writeJSON(w, http.StatusCreated, &post)
}

// UpdatePost handles PUT /posts/{id}. The handler checks existence first so
// a missing id surfaces as 404 rather than the repository's silent no-op.
// When the client omits the version, the stored one is used, opting out of
// the optimistic-concurrency check.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var post models.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := post.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	current, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	post.ID = id
	if post.Version == 0 {
		post.Version = current.Version
	}

	if err := h.repo.Update(r.Context(), &post); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info(r.Context(), "post updated", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeletePost handles DELETE /posts/{id}, with the same existence check as
// update to turn the repository's no-op into a 404.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info(r.Context(), "post removed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListComments handles GET /posts/{id}/comments.
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	comments, err := h.repo.GetComments(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// CreateComment handles POST /posts/{id}/comments.
func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var comment models.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	comment.Entity = models.Entity{}

	if err := h.repo.AddComment(r.Context(), id, &comment); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info(r.Context(), "comment added", "post_id", id, "comment_id", comment.ID)
	w.Header().Set("Location", fmt.Sprintf("%s/%d", r.URL.Path, comment.ID))
	writeJSON(w, http.StatusCreated, &comment)
}

// pagingParams reads pageIndex (default 0) and pageSize (default 5) and
// rejects negative values and pageSize < 1 before any storage call.
func (h *PostHandler) pagingParams(w http.ResponseWriter, r *http.Request) (pageIndex, pageSize int, ok bool) {
	pageIndex, pageSize = 0, defaultPageSize
	q := r.URL.Query()

	if raw := q.Get("pageIndex"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "pageIndex must be an integer",
				map[string][]string{"pageIndex": {"must be an integer"}})
			return 0, 0, false
		}
		pageIndex = n
	}
	if raw := q.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "pageSize must be an integer",
				map[string][]string{"pageSize": {"must be an integer"}})
			return 0, 0, false
		}
		pageSize = n
	}

	if pageIndex < 0 {
		writeProblem(w, http.StatusBadRequest, "pageIndex cannot be negative",
			map[string][]string{"pageIndex": {"cannot be negative"}})
		return 0, 0, false
	}
	if pageSize < 1 {
		writeProblem(w, http.StatusBadRequest, "pageSize must be positive",
			map[string][]string{"pageSize": {"must be positive"}})
		return 0, 0, false
	}
	return pageIndex, pageSize, true
}

// finishPage fills in the NextPage link when further pages exist. The link
// is derived from the request URL so it survives proxies that rewrite the
// host.
func (h *PostHandler) finishPage(page *models.PaginatedItems[*models.Post], r *http.Request, pageIndex, pageSize int) {
	if page.Items == nil {
		page.Items = []*models.Post{}
	}
	if page.LastPage() {
		return
	}

	u := *r.URL
	q := u.Query()
	q.Set("pageIndex", strconv.Itoa(pageIndex+1))
	q.Set("pageSize", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()
	if u.Host == "" {
		u.Host = r.Host
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}
	page.NextPage = u.String()
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid post id", nil)
		return 0, false
	}
	return id, true
}

// writeError maps repository and validation failures onto the HTTP error
// contract. Unrecognized errors become a generic 500 whose detail is
// withheld in production.
func (h *PostHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		writeProblem(w, http.StatusBadRequest, "please refer to the errors property for additional details", validationErr.Fields)
		return
	}

	var conflictErr *repository.TitleConflictError
	if errors.As(err, &conflictErr) {
		h.log.Warn(r.Context(), "title conflict", "title", conflictErr.Title)
		writeProblem(w, http.StatusBadRequest, "please refer to the errors property for additional details",
			map[string][]string{"title": {conflictErr.Error()}})
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "no such post", nil)
		return
	}

	if errors.Is(err, repository.ErrVersionMismatch) {
		writeProblem(w, http.StatusConflict, "the post was modified concurrently; re-fetch and retry", nil)
		return
	}

	h.log.Error(r.Context(), "request failed", "error", err, "path", r.URL.Path,
		"request_id", RequestIDFrom(r.Context()))
	detail := ""
	if !h.production {
		detail = err.Error()
	}
	writeProblem(w, http.StatusInternalServerError, detail, nil)
}
