// Package events is the outbound notification channel from the sync core
// to UI and analytics collaborators. The bus is scoped to a store
// instance, never process-wide.
package events

import "sync"

// Event is a discrete app notification. Concrete event types below.
type Event interface{ eventName() string }

// PostActionScenario classifies what a content-saving action amounted to.
// Every save is classified into exactly one of these; the fallback is
// still reported, never silently dropped.
type PostActionScenario string

const (
	ScenarioDraftCreated              PostActionScenario = "new_draft_created"
	ScenarioDraftSaved                PostActionScenario = "draft_saved_explicitly"
	ScenarioDraftAutoSaved            PostActionScenario = "draft_auto_saved"
	ScenarioDraftPublished            PostActionScenario = "draft_published"
	ScenarioScheduledUpdated          PostActionScenario = "scheduled_post_updated"
	ScenarioPublishedUpdated          PostActionScenario = "published_post_updated"
	ScenarioPostUnpublished           PostActionScenario = "post_unpublished"
	ScenarioDraftDeleted              PostActionScenario = "draft_deleted"
	ScenarioPublishedAutoSavedLocally PostActionScenario = "published_post_edits_auto_saved_locally"
	ScenarioScheduledAutoSavedLocally PostActionScenario = "scheduled_post_edits_auto_saved_locally"
	ScenarioUnknown                   PostActionScenario = "unknown"
)

type LoginDone struct{ BlogURL string }
type LoginError struct {
	BlogURL string
	Err     error
}
type LogoutDone struct{}
type BlogVersionLoaded struct{ Version string }
type PostAction struct {
	Scenario PostActionScenario
	PostID   string
}
type ConflictDetected struct{ PostID string }
type ConflictResolved struct {
	PostID string
	Choice string // "keep_local" or "accept_remote"
}
type FileUploaded struct{ URL string }
type StoreReset struct{}

func (LoginDone) eventName() string         { return "login_done" }
func (LoginError) eventName() string        { return "login_error" }
func (LogoutDone) eventName() string        { return "logout_done" }
func (BlogVersionLoaded) eventName() string { return "blog_version_loaded" }
func (PostAction) eventName() string        { return "post_action" }
func (ConflictDetected) eventName() string  { return "conflict_detected" }
func (ConflictResolved) eventName() string  { return "conflict_resolved" }
func (FileUploaded) eventName() string      { return "file_uploaded" }
func (StoreReset) eventName() string        { return "store_reset" }

// Name returns the wire/log name of an event.
func Name(e Event) string { return e.eventName() }

// Handler consumes one event. Handlers run synchronously on the
// publishing goroutine, in registration order, so subscribers always
// process an event before the publisher proceeds to its next trigger.
type Handler func(Event)

// Bus is a minimal publish/subscribe channel with at-least-once,
// in-order delivery.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id int
	h  Handler
}

func NewBus() *Bus { return &Bus{} }

// Subscribe registers a handler and returns its unsubscribe func.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers = append(b.handlers, subscription{id: id, h: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.handlers {
			if s.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers e to every subscriber before returning.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.handlers))
	copy(subs, b.handlers)
	b.mu.Unlock()

	for _, s := range subs {
		s.h(e)
	}
}
