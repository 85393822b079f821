package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the observability events the gateway emits.
type EventType string

const (
	EventTypeTicketIngested EventType = "ticket.ingested"
)

type EventSeverity string

const (
	EventSeverityLow      EventSeverity = "low"
	EventSeverityMedium   EventSeverity = "medium"
	EventSeverityHigh     EventSeverity = "high"
	EventSeverityCritical EventSeverity = "critical"
)

// BaseEvent is the envelope for every emitted event.
type BaseEvent struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	Severity    EventSeverity          `json:"severity"`
	Timestamp   time.Time              `json:"timestamp"`
	TenantID    string                 `json:"tenant_id"`
	Source      string                 `json:"source"`
	Actor       string                 `json:"actor,omitempty"`
	TicketID    string                 `json:"ticket_id,omitempty"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewBaseEvent constructs an event with a fresh id and current timestamp.
func NewBaseEvent(eventType EventType, tenantID, source, description string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Severity:    EventSeverityLow,
		Timestamp:   time.Now(),
		TenantID:    tenantID,
		Source:      source,
		Description: description,
	}
}

func (e BaseEvent) WithSeverity(s EventSeverity) BaseEvent {
	e.Severity = s
	return e
}

func (e BaseEvent) WithActor(actor string) BaseEvent {
	e.Actor = actor
	return e
}

func (e BaseEvent) WithTicketID(id string) BaseEvent {
	e.TicketID = id
	return e
}

func (e BaseEvent) WithMetadata(metadata map[string]interface{}) BaseEvent {
	e.Metadata = metadata
	return e
}

// NewTicketIngestedEvent builds the structured event for spec §4.9 step
// 12: ticket id, priority, urgency category, source, LCC flag, and
// whether the note was posted.
func NewTicketIngestedEvent(tenantID, ticketID string, priority TicketPriority, category UrgencyCategory, source string, lcc, notePosted bool) BaseEvent {
	return NewBaseEvent(EventTypeTicketIngested, tenantID, "ingestion-pipeline", "ticket ingested and enriched").
		WithTicketID(ticketID).
		WithMetadata(map[string]interface{}{
			"priority":        priority,
			"urgency_category": category,
			"source":          source,
			"lcc_flag":        lcc,
			"note_posted":     notePosted,
		})
}

// EventBatch groups events for a single publish call.
type EventBatch struct {
	Events    []BaseEvent `json:"events"`
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEventBatch(events []BaseEvent) EventBatch {
	return EventBatch{
		Events:    events,
		BatchID:   uuid.New().String(),
		Timestamp: time.Now(),
	}
}
