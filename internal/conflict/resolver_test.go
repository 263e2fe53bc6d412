package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/events"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

func newTestResolver(t *testing.T) (*Resolver, *[]events.Event) {
	t.Helper()
	bus := events.NewBus()
	var seen []events.Event
	bus.Subscribe(func(e events.Event) { seen = append(seen, e) })
	return NewResolver(bus, nil), &seen
}

func remoteAt(t time.Time) *models.Post {
	return &models.Post{ID: "p1", Title: "remote title", Markdown: "remote body", UpdatedAt: t}
}

func TestMarkLocalEdit_CapturesBaseOnce(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := &models.Post{ID: "p1", UpdatedAt: t1, ConflictState: models.ConflictNone}

	r.MarkLocalEdit(ctx, p)
	assert.Equal(t, models.ConflictLocalEdits, p.ConflictState)
	require.NotNil(t, p.BaseUpdatedAt)
	assert.True(t, p.BaseUpdatedAt.Equal(t1))

	// a second edit on top keeps the original base
	p.UpdatedAt = t1.Add(time.Hour)
	r.MarkLocalEdit(ctx, p)
	assert.True(t, p.BaseUpdatedAt.Equal(t1))
}

func TestObserveRemote_MatchingBaseIsSafe(t *testing.T) {
	r, seen := newTestResolver(t)
	ctx := context.Background()

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := &models.Post{ID: "p1", UpdatedAt: t1}
	r.MarkLocalEdit(ctx, p)

	detected := r.ObserveRemote(ctx, p, t1)
	assert.False(t, detected)
	assert.Equal(t, models.ConflictLocalEdits, p.ConflictState)
	assert.Empty(t, *seen)
}

func TestObserveRemote_DivergenceDetectedExactlyOnce(t *testing.T) {
	r, seen := newTestResolver(t)
	ctx := context.Background()

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	p := &models.Post{ID: "p1", UpdatedAt: t1}
	r.MarkLocalEdit(ctx, p)

	detected := r.ObserveRemote(ctx, p, t2)
	assert.True(t, detected)
	assert.Equal(t, models.ConflictDetected, p.ConflictState)
	require.Len(t, *seen, 1)
	assert.Equal(t, events.ConflictDetected{PostID: "p1"}, (*seen)[0])

	// the same divergence observed again (say after a restart with the
	// persisted state reloaded) is not re-reported
	detected = r.ObserveRemote(ctx, p, t2)
	assert.False(t, detected)
	assert.Len(t, *seen, 1)
}

func TestObserveRemote_CleanPostIsUntouched(t *testing.T) {
	r, seen := newTestResolver(t)

	p := &models.Post{ID: "p1", ConflictState: models.ConflictNone}
	detected := r.ObserveRemote(context.Background(), p, time.Now())
	assert.False(t, detected)
	assert.Equal(t, models.ConflictNone, p.ConflictState)
	assert.Empty(t, *seen)
}

func TestCanPush_BlockedOnlyWhileConflicted(t *testing.T) {
	r, _ := newTestResolver(t)

	p := &models.Post{ID: "p1", ConflictState: models.ConflictLocalEdits}
	assert.NoError(t, r.CanPush(p))

	p.ConflictState = models.ConflictDetected
	assert.ErrorIs(t, r.CanPush(p), common.ErrConflictUnresolved)

	p.ConflictState = models.ConflictNone
	assert.NoError(t, r.CanPush(p))
}

func TestResolve_KeepLocal(t *testing.T) {
	r, seen := newTestResolver(t)
	ctx := context.Background()

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	p := &models.Post{ID: "p1", Title: "local title", UpdatedAt: t1}
	r.MarkLocalEdit(ctx, p)
	r.ObserveRemote(ctx, p, t2)

	require.NoError(t, r.Resolve(ctx, p, remoteAt(t2), ChoiceKeepLocal))

	assert.Equal(t, models.ConflictLocalEdits, p.ConflictState, "keep-local settles back to unsynced edits")
	assert.Equal(t, "local title", p.Title, "local content is kept")
	require.NotNil(t, p.BaseUpdatedAt)
	assert.True(t, p.BaseUpdatedAt.Equal(t2), "base moves to the remote marker so the same remote state cannot re-conflict")

	require.Len(t, *seen, 2)
	assert.Equal(t, events.ConflictResolved{PostID: "p1", Choice: "keep_local"}, (*seen)[1])
}

func TestResolve_AcceptRemote(t *testing.T) {
	r, seen := newTestResolver(t)
	ctx := context.Background()

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	p := &models.Post{ID: "p1", Title: "local title", Markdown: "local body", UpdatedAt: t1}
	r.MarkLocalEdit(ctx, p)
	r.ObserveRemote(ctx, p, t2)

	require.NoError(t, r.Resolve(ctx, p, remoteAt(t2), ChoiceAcceptRemote))

	assert.Equal(t, models.ConflictNone, p.ConflictState, "accept-remote settles to clean")
	assert.Equal(t, "remote title", p.Title)
	assert.Equal(t, "remote body", p.Markdown)
	assert.True(t, p.UpdatedAt.Equal(t2))
	assert.Nil(t, p.BaseUpdatedAt)

	require.Len(t, *seen, 2)
	assert.Equal(t, events.ConflictResolved{PostID: "p1", Choice: "accept_remote"}, (*seen)[1])
}

func TestResolve_RequiresDetectedState(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	p := &models.Post{ID: "p1", ConflictState: models.ConflictLocalEdits}
	err := r.Resolve(ctx, p, remoteAt(time.Now()), ChoiceKeepLocal)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestResolve_UnknownChoiceKeepsConflict(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	p := &models.Post{ID: "p1", ConflictState: models.ConflictDetected}
	err := r.Resolve(ctx, p, remoteAt(time.Now()), Choice("merge"))
	assert.ErrorIs(t, err, common.ErrInvalidTransition)
	assert.Equal(t, models.ConflictDetected, p.ConflictState, "a bogus choice must not leak the post out of the conflicted state")
}

func TestMarkPushed_ReturnsToCleanAndAdoptsServerFields(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p := &models.Post{ID: "p1", UpdatedAt: t1, LocalOnly: true}
	r.MarkLocalEdit(ctx, p)

	serverTime := t1.Add(2 * time.Hour)
	server := &models.Post{ID: "p1", Slug: "assigned-slug", UUID: "server-uuid", UpdatedAt: serverTime}
	r.MarkPushed(ctx, p, server)

	assert.Equal(t, models.ConflictNone, p.ConflictState)
	assert.Nil(t, p.BaseUpdatedAt)
	assert.False(t, p.LocalOnly)
	assert.Equal(t, "assigned-slug", p.Slug)
	assert.True(t, p.UpdatedAt.Equal(serverTime))
}
