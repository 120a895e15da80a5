// Package models defines the record shapes shared by the repository and
// HTTP layers: the Entity base, the Post aggregate with its owned Comments,
// and the PaginatedItems page window.
package models

// Entity is the base embedded by every persisted record. ID is assigned by
// storage on insert and immutable afterwards. Version starts at 1 and is
// incremented by storage on every successful update; it exists only for
// optimistic-concurrency comparison.
type Entity struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

// EntityID returns the server-assigned identity.
func (e *Entity) EntityID() int64 { return e.ID }

// SetID records the identity assigned by storage.
func (e *Entity) SetID(id int64) { e.ID = id }

// EntityVersion returns the current version token.
func (e *Entity) EntityVersion() int64 { return e.Version }

// SetVersion records the version token assigned by storage.
func (e *Entity) SetVersion(v int64) { e.Version = v }

// Post is a blog post. Comments are a sub-resource and are not embedded
// in the post payload.
type Post struct {
	Entity
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Comment belongs to exactly one post. The back reference is a lookup
// relation kept out of the wire payload.
type Comment struct {
	Entity
	Author  string `json:"author,omitempty"`
	Content string `json:"content,omitempty"`
	PostID  int64  `json:"-"`
}
