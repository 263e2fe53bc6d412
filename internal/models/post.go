// Package models defines the blog entities mirrored into the local store.
// Required fields are plain values; nullable fields are pointers, matching
// the upstream Ghost schema's declared nullability.
package models

import "time"

// PostStatus is the publication state of a post on the server.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPublished PostStatus = "published"
)

// ConflictState tracks the reconciliation lifecycle of a locally editable
// post. It is persisted with the post so an unresolved conflict survives
// restarts without being re-reported.
type ConflictState string

const (
	// ConflictNone means there are no unsynced local changes.
	ConflictNone ConflictState = "NONE"
	// ConflictLocalEdits means local edits exist that have not been pushed.
	ConflictLocalEdits ConflictState = "LOCAL_EDITS_UNSYNCED"
	// ConflictDetected means local and remote diverged; an explicit user
	// choice is required before the post can be pushed again.
	ConflictDetected ConflictState = "CONFLICT_DETECTED"
	// ConflictResolved is the momentary pass-through state both user
	// choices go through before settling.
	ConflictResolved ConflictState = "RESOLVED"
)

// Post is the central mirrored entity.
//
// BaseUpdatedAt is the remote last-modified marker captured at the moment
// local edits began; it is what remote refreshes are compared against to
// detect conflicts. LocalOnly marks drafts created on this device that the
// server has never seen.
type Post struct {
	ID     string
	UUID   string
	Slug   string // required, backfilled to "" by migration v1
	Title  string
	Markdown string

	HTML          *string
	CustomExcerpt *string
	FeatureImage  *string

	Status PostStatus

	CreatedAt   *time.Time
	PublishedAt *time.Time
	UpdatedAt   time.Time

	MetaTitle       *string
	MetaDescription *string

	ConflictState ConflictState
	BaseUpdatedAt *time.Time
	LocalOnly     bool

	Tags []Tag
}

func (p *Post) IsDraft() bool     { return p.Status == StatusDraft }
func (p *Post) IsScheduled() bool { return p.Status == StatusScheduled }
func (p *Post) IsPublished() bool { return p.Status == StatusPublished }

// HasUnsyncedEdits reports whether the post carries local changes the
// server has not seen, in any conflict sub-state.
func (p *Post) HasUnsyncedEdits() bool {
	return p.ConflictState == ConflictLocalEdits || p.ConflictState == ConflictDetected
}

// Tag is a shared lookup entity attached to posts.
type Tag struct {
	ID   string
	UUID string
	Name string

	Slug            *string
	Description     *string
	FeatureImage    *string
	MetaTitle       *string
	MetaDescription *string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
}
