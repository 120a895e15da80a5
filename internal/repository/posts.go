package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hungpv1995/posts-api/internal/dbx"
	"github.com/hungpv1995/posts-api/internal/logging"
	"github.com/hungpv1995/posts-api/internal/models"
	"github.com/hungpv1995/posts-api/internal/store"
)

var postDescriptor = Descriptor[*models.Post]{
	Table:   "posts",
	Columns: []string{"title", "description"},
	Scan: func(row dbx.Scanner) (*models.Post, error) {
		var p models.Post
		var description sql.NullString
		if err := row.Scan(&p.ID, &p.Version, &p.Title, &description); err != nil {
			return nil, err
		}
		p.Description = description.String
		return &p, nil
	},
	Values: func(p *models.Post) []any {
		return []any{p.Title, p.Description}
	},
}

// PostRepository specializes the generic repository for posts: writes are
// guarded by the case-insensitive title-uniqueness invariant, and the
// comment sub-collection is managed through the owning post.
type PostRepository struct {
	*Repository[*models.Post]
	db  *store.DB
	log logging.Logger
}

func NewPostRepository(db *store.DB, log logging.Logger) *PostRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PostRepository{
		Repository: New(db, postDescriptor, log),
		db:         db,
		log:        log,
	}
}

// Add persists a new post after checking that no other post holds the same
// title under case-insensitive comparison. The check and the insert share
// one transaction, and a unique-index rejection from the engine maps to the
// same TitleConflictError, so two racing writers cannot both succeed.
func (r *PostRepository) Add(ctx context.Context, post *models.Post) error {
	err := r.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		taken, err := r.titleTaken(ctx, tx, post.Title, 0)
		if err != nil {
			return err
		}
		if taken {
			return &TitleConflictError{Title: post.Title}
		}
		return r.Repository.WithSession(tx).Add(ctx, post)
	})
	if store.IsUniqueViolation(err) {
		return &TitleConflictError{Title: post.Title}
	}
	return err
}

// Update re-validates the uniqueness invariant, excluding the post's own id
// so renaming a post to its unchanged title is not a false conflict, then
// delegates to the generic compare-and-swap update.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		taken, err := r.titleTaken(ctx, tx, post.Title, post.ID)
		if err != nil {
			return err
		}
		if taken {
			return &TitleConflictError{Title: post.Title}
		}
		return r.Repository.WithSession(tx).Update(ctx, post)
	})
	if store.IsUniqueViolation(err) {
		return &TitleConflictError{Title: post.Title}
	}
	return err
}

func (r *PostRepository) titleTaken(ctx context.Context, tx dbx.DBTX, title string, excludeID int64) (bool, error) {
	var taken bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE lower(title) = lower($1) AND id <> $2)`,
		title, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("checking title %q: %w", title, err)
	}
	return taken, nil
}

// GetComments loads the post's comment collection ordered by id. It returns
// ErrNotFound when the post itself is absent.
func (r *PostRepository) GetComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	if _, err := r.Get(ctx, postID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, author, content FROM comments WHERE post_id = $1 ORDER BY id`,
		postID)
	if err != nil {
		return nil, fmt.Errorf("querying comments of post %d: %w", postID, err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		var c models.Comment
		var author, content sql.NullString
		if err := rows.Scan(&c.ID, &c.Version, &author, &content); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.Author = author.String
		c.Content = content.String
		c.PostID = postID
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments of post %d: %w", postID, err)
	}
	return comments, nil
}

// AddComment appends a comment to the post's collection. The existence
// check and the insert run in one transaction so the comment cannot attach
// to a post deleted in between; the comment receives its identity and
// version on persist.
func (r *PostRepository) AddComment(ctx context.Context, postID int64, comment *models.Comment) error {
	return r.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking post %d: %w", postID, err)
		}
		if !exists {
			return ErrNotFound
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO comments (author, content, post_id) VALUES ($1, $2, $3) RETURNING id, version`,
			comment.Author, comment.Content, postID).Scan(&comment.ID, &comment.Version)
		if err != nil {
			return fmt.Errorf("inserting comment for post %d: %w", postID, err)
		}
		comment.PostID = postID
		return nil
	})
}

// TitleContains filters posts whose title contains the given substring,
// case-insensitively. Used by the withtitle endpoint through GetAllPaged.
func TitleContains(s string) *Filter {
	return &Filter{
		Expr: `lower(title) LIKE '%' || lower($1) || '%'`,
		Args: []any{s},
	}
}
