package items

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names.
const (
	EventSaved        = "item::saved"
	EventSavedSource  = "item::saved.source"
	EventCreate       = "item::create"
	EventUpdate       = "item::update"
	EventUpdateCreate = "item::update.create"
	EventDelete       = "item::delete"
	EventRestore      = "item::restore"
)

// Audit log entry names.
const (
	AuditCreate          = "items::create"
	AuditUpdate          = "items::update"
	AuditDelete          = "items::delete"
	AuditRestoreRevision = "items::restore_revision"
)

// Event describes a change of an item row.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Item       *Item     `json:"item"`
	Previous   *Item     `json:"previous,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent creates an event with a fresh ID.
func NewEvent(name string, item, previous *Item, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Name:       name,
		Item:       item,
		Previous:   previous,
		OccurredAt: at,
	}
}
