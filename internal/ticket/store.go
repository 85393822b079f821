// Package ticket implements C11: ticket/message/note CRUD, the
// AIRecommendation cache with message-count invalidation, and the
// draft/recommendation generation rules.
package ticket

import (
	"context"
	"errors"

	"github.com/securizon/pkg/models"
)

var (
	ErrNotFound     = errors.New("ticket not found")
	ErrNumberTaken  = errors.New("ticket number already exists")
)

// Store is the tenant-scoped persistence contract; the relational store
// itself is out of scope.
type Store interface {
	NextTicketNumber(ctx context.Context, tenantID string) (string, error)
	CreateTicket(ctx context.Context, t *models.Ticket, initial *models.TicketMessage) error
	GetTicketByID(ctx context.Context, tenantID, id string) (*models.Ticket, error)
	GetTicketByNumber(ctx context.Context, tenantID, number string) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, t *models.Ticket) error
	ListTickets(ctx context.Context, tenantID string, filter Filter) ([]*models.Ticket, error)

	AppendMessage(ctx context.Context, m *models.TicketMessage) error
	ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error)
	ResetMessages(ctx context.Context, ticketID string, keepFirst bool) error

	AddNote(ctx context.Context, n *models.TicketNote) error
	ListNotes(ctx context.Context, ticketID string) ([]models.TicketNote, error)

	SaveRecommendation(ctx context.Context, r *models.AIRecommendation) error
	GetRecommendation(ctx context.Context, ticketID string) (*models.AIRecommendation, error)

	// Lock serializes all mutations to a single ticket (append message,
	// update status/tags, cache recommendation) per spec §5.
	Lock(ticketID string) func()
}

type Filter struct {
	Status      models.TicketStatus
	Priority    models.TicketPriority
	Channel     string
	AssignedTo  string
	CustomerID  string
	SmartOrder  bool
	TopicAlerts []string
	Page, Limit int
	Sort, Order string
}
