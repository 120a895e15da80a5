// Package repository mediates between the HTTP handlers and the relational
// store. It provides a generic identity-keyed CRUD and pagination engine
// plus a Post specialization that enforces title uniqueness and owns the
// comment sub-collection.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/hungpv1995/posts-api/internal/dbx"
	"github.com/hungpv1995/posts-api/internal/logging"
	"github.com/hungpv1995/posts-api/internal/models"
)

// Entity is the contract every persisted type satisfies: a server-assigned
// identity plus a version token for optimistic concurrency. models.Entity
// provides the implementation via embedding.
type Entity interface {
	EntityID() int64
	SetID(int64)
	EntityVersion() int64
	SetVersion(int64)
}

// Descriptor tells the generic repository how to map T onto its table:
// the mutable column names (id and version are managed by the repository)
// and the scan/bind functions for those columns.
type Descriptor[T Entity] struct {
	Table   string
	Columns []string
	// Scan reads id, version and then Columns, in order.
	Scan func(row dbx.Scanner) (T, error)
	// Values returns the bind values for Columns, in order.
	Values func(T) []any
}

// Repository is a generic CRUD and pagination engine over one table.
type Repository[T Entity] struct {
	db   dbx.DBTX
	desc Descriptor[T]
	log  logging.Logger
}

// New builds a repository for the described entity over the given session.
func New[T Entity](db dbx.DBTX, desc Descriptor[T], log logging.Logger) *Repository[T] {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Repository[T]{db: db, desc: desc, log: log}
}

// WithSession returns a copy of the repository bound to another session,
// typically a transaction handle.
func (r *Repository[T]) WithSession(db dbx.DBTX) *Repository[T] {
	return &Repository[T]{db: db, desc: r.desc, log: r.log}
}

func (r *Repository[T]) selectList() string {
	return "id, version, " + strings.Join(r.desc.Columns, ", ")
}

// Get performs a point lookup by primary key, returning ErrNotFound when no
// row exists.
func (r *Repository[T]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, r.selectList(), r.desc.Table)

	item, err := r.desc.Scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("getting %s %d: %w", r.desc.Table, id, err)
	}
	return item, nil
}

// GetAll returns a lazy sequence over every row. Each invocation issues a
// fresh query, so the sequence is restartable and each pass is a
// point-in-time snapshot; stopping early closes the underlying rows.
// Intended for small collections only.
func (r *Repository[T]) GetAll(ctx context.Context) iter.Seq2[T, error] {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, r.selectList(), r.desc.Table)

	return func(yield func(T, error) bool) {
		var zero T
		rows, err := r.db.QueryContext(ctx, query)
		if err != nil {
			yield(zero, fmt.Errorf("querying %s: %w", r.desc.Table, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			item, err := r.desc.Scan(rows)
			if !yield(item, err) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, fmt.Errorf("iterating %s: %w", r.desc.Table, err))
		}
	}
}

// GetAllPaged computes one page window over the rows matching filter,
// ordered by descending id so that concurrent appends land on page zero
// instead of shifting already-fetched pages. TotalItems is the full filtered
// count; the reported PageSize is the actual number of items on this page.
// NextPage is left empty, as link construction belongs to the HTTP layer.
func (r *Repository[T]) GetAllPaged(ctx context.Context, pageIndex, pageSize int, filter *Filter) (*models.PaginatedItems[T], error) {
	if pageIndex < 0 {
		return nil, models.NewValidationError("pageIndex", "cannot be negative")
	}
	if pageSize < 0 {
		return nil, models.NewValidationError("pageSize", "cannot be negative")
	}

	where, args := "", []any(nil)
	if filter != nil {
		where = " WHERE " + filter.Expr
		args = filter.Args
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.desc.Table, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting %s: %w", r.desc.Table, err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		r.selectList(), r.desc.Table, where, n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, pageSize, pageIndex*pageSize)...)
	if err != nil {
		return nil, fmt.Errorf("querying %s page %d: %w", r.desc.Table, pageIndex, err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		item, err := r.desc.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", r.desc.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", r.desc.Table, err)
	}

	page := models.NewPage(pageIndex, pageSize, total, items)
	r.log.Debug(ctx, "retrieved page", "table", r.desc.Table,
		"pageIndex", pageIndex, "pageSize", page.PageSize, "totalItems", total)
	return page, nil
}

// Add inserts the entity; storage assigns the identity and the initial
// version, which are written back into the entity before returning.
func (r *Repository[T]) Add(ctx context.Context, item T) error {
	placeholders := make([]string, len(r.desc.Columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id, version`,
		r.desc.Table, strings.Join(r.desc.Columns, ", "), strings.Join(placeholders, ", "))

	var id, version int64
	if err := r.db.QueryRowContext(ctx, query, r.desc.Values(item)...).Scan(&id, &version); err != nil {
		return fmt.Errorf("inserting into %s: %w", r.desc.Table, err)
	}
	item.SetID(id)
	item.SetVersion(version)
	return nil
}

// Update overwrites the mutable columns of the stored row via a
// compare-and-swap on (id, version). A missing id is a silent no-op; a
// present row with a different version fails with ErrVersionMismatch. On
// success the entity's version is advanced in place.
func (r *Repository[T]) Update(ctx context.Context, item T) error {
	assignments := make([]string, len(r.desc.Columns))
	for i, col := range r.desc.Columns {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	n := len(r.desc.Columns)

	query := fmt.Sprintf(`UPDATE %s SET %s, version = version + 1 WHERE id = $%d AND version = $%d`,
		r.desc.Table, strings.Join(assignments, ", "), n+1, n+2)

	args := append(r.desc.Values(item), item.EntityID(), item.EntityVersion())
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", r.desc.Table, item.EntityID(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", r.desc.Table, item.EntityID(), err)
	}
	if affected > 0 {
		item.SetVersion(item.EntityVersion() + 1)
		return nil
	}

	// No row matched: either the id is gone (no-op) or the version is stale.
	var stored int64
	err = r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT version FROM %s WHERE id = $1`, r.desc.Table),
		item.EntityID()).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", r.desc.Table, item.EntityID(), err)
	}
	return fmt.Errorf("updating %s %d: stored version %d, got %d: %w",
		r.desc.Table, item.EntityID(), stored, item.EntityVersion(), ErrVersionMismatch)
}

// Delete removes the row; a missing id is a silent no-op.
func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.desc.Table)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deleting %s %d: %w", r.desc.Table, id, err)
	}
	return nil
}

// Filter is a server-side row predicate: a SQL boolean expression with
// $1..$n placeholders and its bind arguments. It is applied to both the
// count and the page window.
type Filter struct {
	Expr string
	Args []any
}
