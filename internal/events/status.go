package events

type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCancelled EventStatus = "CANCELLED"
	EventStatusCompleted EventStatus = "COMPLETED"
)

// IsValid checks if the event status is valid
func (es EventStatus) IsValid() bool {
	switch es {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of EventStatus
func (es EventStatus) String() string {
	return string(es)
}

// IsBookable checks if seats for this event can be held or booked
func (es EventStatus) IsBookable() bool {
	return es == EventStatusPublished
}
