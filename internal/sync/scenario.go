package sync

import (
	"github.com/dmitrijs2005/ghostmirror/internal/events"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

// classifyScenario names the post action for reporting, from the stored
// version's status, the saved version's status and whether the save was
// user-initiated or an autosave.
func classifyScenario(prev, next *models.Post, autosave bool) events.PostActionScenario {
	if prev == nil {
		return events.ScenarioDraftCreated
	}

	switch prev.Status {
	case models.StatusDraft:
		switch next.Status {
		case models.StatusDraft:
			if autosave {
				return events.ScenarioDraftAutoSaved
			}
			return events.ScenarioDraftSaved
		case models.StatusPublished:
			return events.ScenarioDraftPublished
		case models.StatusScheduled:
			return events.ScenarioScheduledUpdated
		}
	case models.StatusPublished:
		switch next.Status {
		case models.StatusDraft:
			return events.ScenarioPostUnpublished
		case models.StatusPublished:
			if autosave {
				return events.ScenarioPublishedAutoSavedLocally
			}
			return events.ScenarioPublishedUpdated
		case models.StatusScheduled:
			return events.ScenarioScheduledUpdated
		}
	case models.StatusScheduled:
		switch next.Status {
		case models.StatusDraft:
			return events.ScenarioPostUnpublished
		case models.StatusPublished:
			return events.ScenarioDraftPublished
		case models.StatusScheduled:
			if autosave {
				return events.ScenarioScheduledAutoSavedLocally
			}
			return events.ScenarioScheduledUpdated
		}
	}
	return events.ScenarioUnknown
}
