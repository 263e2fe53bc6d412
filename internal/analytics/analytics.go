// Package analytics records app events as structured log entries. It is a
// plain bus subscriber: the sync core never calls it directly, so
// swapping the backend touches nothing else.
package analytics

import (
	"context"

	"github.com/dmitrijs2005/ghostmirror/internal/events"
	"github.com/dmitrijs2005/ghostmirror/internal/logging"
)

// Collector subscribes to the event bus and reports every event.
type Collector struct {
	log         logging.Logger
	unsubscribe func()
}

// Attach subscribes a new collector to the bus. Call Detach when done.
func Attach(bus *events.Bus, log logging.Logger) *Collector {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Collector{log: log.With("component", "analytics")}
	c.unsubscribe = bus.Subscribe(c.handle)
	return c
}

// Detach stops reporting.
func (c *Collector) Detach() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Collector) handle(e events.Event) {
	ctx := context.Background()
	name := events.Name(e)
	switch ev := e.(type) {
	case events.LoginDone:
		c.log.Info(ctx, name, "blog", ev.BlogURL)
	case events.LoginError:
		c.log.Warn(ctx, name, "blog", ev.BlogURL, "error", ev.Err)
	case events.BlogVersionLoaded:
		c.log.Info(ctx, name, "version", ev.Version)
	case events.PostAction:
		c.log.Info(ctx, name, "scenario", string(ev.Scenario), "post", ev.PostID)
	case events.ConflictDetected:
		c.log.Warn(ctx, name, "post", ev.PostID)
	case events.ConflictResolved:
		c.log.Info(ctx, name, "post", ev.PostID, "choice", ev.Choice)
	case events.FileUploaded:
		c.log.Info(ctx, name, "url", ev.URL)
	default:
		c.log.Info(ctx, name)
	}
}
