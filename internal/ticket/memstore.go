package ticket

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/securizon/pkg/models"
)

// MemStore is an in-process Store for local runs and tests. Per-ticket
// mutations are serialized with a per-ticket mutex, satisfying the
// ordering guarantee in spec §5 without a database transaction.
type MemStore struct {
	mu        sync.RWMutex
	tickets   map[string]*models.Ticket
	byNumber  map[string]string // tenantID:number -> ticket id
	messages  map[string][]models.TicketMessage
	notes     map[string][]models.TicketNote
	recs      map[string]*models.AIRecommendation
	counters  map[string]int64 // tenantID -> next ticket number
	locks     map[string]*sync.Mutex
}

func NewMemStore() *MemStore {
	return &MemStore{
		tickets:  make(map[string]*models.Ticket),
		byNumber: make(map[string]string),
		messages: make(map[string][]models.TicketMessage),
		notes:    make(map[string][]models.TicketNote),
		recs:     make(map[string]*models.AIRecommendation),
		counters: make(map[string]int64),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *MemStore) Lock(ticketID string) func() {
	s.mu.Lock()
	l, ok := s.locks[ticketID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ticketID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (s *MemStore) NextTicketNumber(ctx context.Context, tenantID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[tenantID]++
	n := s.counters[tenantID]
	return "T-" + pad(n), nil
}

func pad(n int64) string {
	s := strconv.FormatInt(n, 10)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

func (s *MemStore) CreateTicket(ctx context.Context, t *models.Ticket, initial *models.TicketMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := t.TenantID + ":" + t.TicketNumber
	if _, exists := s.byNumber[key]; exists {
		return ErrNumberTaken
	}
	s.tickets[t.ID] = t
	s.byNumber[key] = t.ID
	if initial != nil {
		s.messages[t.ID] = append(s.messages[t.ID], *initial)
	}
	return nil
}

func (s *MemStore) GetTicketByID(ctx context.Context, tenantID, id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok || t.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *MemStore) GetTicketByNumber(ctx context.Context, tenantID, number string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[tenantID+":"+number]
	if !ok {
		return nil, ErrNotFound
	}
	return s.tickets[id], nil
}

func (s *MemStore) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[t.ID]; !ok {
		return ErrNotFound
	}
	s.tickets[t.ID] = t
	return nil
}

func (s *MemStore) ListTickets(ctx context.Context, tenantID string, f Filter) ([]*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ticket
	for _, t := range s.tickets {
		if t.TenantID != tenantID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Channel != "" && t.Channel != f.Channel {
			continue
		}
		if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
			continue
		}
		if f.CustomerID != "" && t.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) AppendMessage(ctx context.Context, m *models.TicketMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.TicketID] = append(s.messages[m.TicketID], *m)
	return nil
}

func (s *MemStore) ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := append([]models.TicketMessage{}, s.messages[ticketID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	return msgs, nil
}

func (s *MemStore) ResetMessages(ctx context.Context, ticketID string, keepFirst bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[ticketID]
	if keepFirst && len(msgs) > 0 {
		s.messages[ticketID] = msgs[:1]
	} else {
		s.messages[ticketID] = nil
	}
	return nil
}

func (s *MemStore) AddNote(ctx context.Context, n *models.TicketNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.TicketID] = append(s.notes[n.TicketID], *n)
	return nil
}

func (s *MemStore) ListNotes(ctx context.Context, ticketID string) ([]models.TicketNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TicketNote{}, s.notes[ticketID]...), nil
}

func (s *MemStore) SaveRecommendation(ctx context.Context, r *models.AIRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[r.TicketID] = r
	return nil
}

func (s *MemStore) GetRecommendation(ctx context.Context, ticketID string) (*models.AIRecommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[ticketID]
	if !ok {
		return nil, fmt.Errorf("no recommendation for %s", ticketID)
	}
	return r, nil
}
