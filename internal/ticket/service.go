package ticket

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/securizon/internal/analytics"
	"github.com/securizon/internal/knowledgebase"
	"github.com/securizon/internal/llm"
	"github.com/securizon/internal/scorer"
	"github.com/securizon/internal/urgency"
	"github.com/securizon/pkg/models"
)

const recommendationTTL = time.Hour

var uuidRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Service implements C11: ticket/message/note CRUD, the AIRecommendation
// cache, and smart-order listing.
type Service struct {
	store     Store
	analytics *analytics.Service
	kb        *knowledgebase.Service
	llmAdapter llm.Adapter
}

func NewService(store Store, analyticsSvc *analytics.Service, kb *knowledgebase.Service, adapter llm.Adapter) *Service {
	return &Service{store: store, analytics: analyticsSvc, kb: kb, llmAdapter: adapter}
}

// CreateTicket assigns a tenant-scoped ticket number and records the
// inbound message as the first entry in the conversation.
func (s *Service) CreateTicket(ctx context.Context, tenantID string, t *models.Ticket, initial *models.TicketMessage) (*models.Ticket, error) {
	number, err := s.store.NextTicketNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.createTicket(ctx, tenantID, number, t, initial)
}

// CreateFromWebhook creates a ticket whose number is the identifier the
// originating provider already assigned, rather than allocating a new
// one: later webhook deliveries for the same provider ticket must
// resolve back to this same local ticket.
func (s *Service) CreateFromWebhook(ctx context.Context, tenantID, providerTicketNumber string, t *models.Ticket, initial *models.TicketMessage) (*models.Ticket, error) {
	return s.createTicket(ctx, tenantID, providerTicketNumber, t, initial)
}

func (s *Service) createTicket(ctx context.Context, tenantID, number string, t *models.Ticket, initial *models.TicketMessage) (*models.Ticket, error) {
	t.ID = uuid.New().String()
	t.TenantID = tenantID
	t.TicketNumber = number
	t.Status = models.TicketStatusOpen
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	if initial != nil {
		initial.ID = uuid.New().String()
		initial.TicketID = t.ID
		if initial.CreatedAt.IsZero() {
			initial.CreatedAt = now
		}
	}

	if err := s.store.CreateTicket(ctx, t, initial); err != nil {
		return nil, err
	}
	return t, nil
}

// resolve implements the UUID-vs-ticket_number lookup ambiguity rule from
// spec §4.11: a UUID-shaped identifier is looked up by id, anything else
// is treated as a ticket_number.
func (s *Service) resolve(ctx context.Context, tenantID, identifier string) (*models.Ticket, error) {
	if uuidRE.MatchString(identifier) {
		return s.store.GetTicketByID(ctx, tenantID, identifier)
	}
	return s.store.GetTicketByNumber(ctx, tenantID, identifier)
}

// TicketView composes a ticket with its messages, merged analytics, and
// latest non-expired recommendation for the GetTicket read path.
type TicketView struct {
	Ticket         *models.Ticket
	Messages       []models.TicketMessage
	Analytics      *models.CustomerAnalytics
	Recommendation *models.AIRecommendation
}

func (s *Service) GetTicket(ctx context.Context, tenantID, identifier string) (*TicketView, error) {
	t, err := s.resolve(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	view := &TicketView{Ticket: t, Messages: msgs}

	if s.analytics != nil && t.CustomerID != "" {
		if a, err := s.analytics.GetCustomerAnalytics(ctx, t.CustomerID); err == nil {
			view.Analytics = a
		}
	}

	if rec, err := s.store.GetRecommendation(ctx, t.ID); err == nil {
		if !rec.IsStale(len(msgs)) {
			view.Recommendation = rec
		}
	}

	return view, nil
}

func (s *Service) ListTickets(ctx context.Context, tenantID string, filter Filter) ([]scorer.ScoredTicket, error) {
	tickets, err := s.store.ListTickets(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	if !filter.SmartOrder {
		out := make([]scorer.ScoredTicket, 0, len(tickets))
		for _, t := range tickets {
			out = append(out, scorer.ScoredTicket{Ticket: t})
		}
		return paginate(out, filter), nil
	}

	// smart_order requires scoring the full candidate set before
	// pagination is applied (spec §4.10).
	scored := make([]scorer.ScoredTicket, 0, len(tickets))
	for _, t := range tickets {
		var a *models.CustomerAnalytics
		if s.analytics != nil && t.CustomerID != "" {
			if got, err := s.analytics.GetCustomerAnalytics(ctx, t.CustomerID); err == nil {
				a = got
			}
		}
		msgs, _ := s.store.ListMessages(ctx, t.ID)
		latest := ""
		if len(msgs) > 0 {
			latest = msgs[len(msgs)-1].Content
		}
		frustrated := scorer.HasSentimentMarker(latest)
		bd := scorer.Score(t, a, latest, frustrated, filter.TopicAlerts)
		scored = append(scored, scorer.ScoredTicket{Ticket: t, Breakdown: bd})
	}
	scorer.SortSmartOrder(scored)
	return paginate(scored, filter), nil
}

func paginate(scored []scorer.ScoredTicket, filter Filter) []scorer.ScoredTicket {
	limit := filter.Limit
	if limit <= 0 {
		limit = 25
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(scored) {
		return nil
	}
	end := start + limit
	if end > len(scored) {
		end = len(scored)
	}
	return scored[start:end]
}

// AppendMessage appends a new conversation message, bumps updated_at, and
// invalidates any cached AIRecommendation by virtue of the message-count
// staleness check (models.AIRecommendation.IsStale).
func (s *Service) AppendMessage(ctx context.Context, tenantID, identifier string, m *models.TicketMessage, closeTicket bool) (*models.Ticket, error) {
	t, err := s.resolve(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}

	unlock := s.store.Lock(t.ID)
	defer unlock()

	m.ID = uuid.New().String()
	m.TicketID = t.ID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return nil, err
	}

	t.UpdatedAt = time.Now()
	if closeTicket {
		t.Status = models.TicketStatusClosed
		now := time.Now()
		t.ClosedAt = &now
	}
	if err := s.store.UpdateTicket(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTicket applies tag semantics from spec §4.11: tags (if present)
// replaces the set first, then add_tags unions, then remove_tags
// subtracts. The resulting set has no duplicates.
type TicketUpdate struct {
	Status     *models.TicketStatus
	Priority   *models.TicketPriority
	AssignedTo *string
	Tags       []string
	AddTags    []string
	RemoveTags []string
}

func (s *Service) UpdateTicket(ctx context.Context, tenantID, identifier string, upd TicketUpdate) (*models.Ticket, error) {
	t, err := s.resolve(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}

	unlock := s.store.Lock(t.ID)
	defer unlock()

	if upd.Status != nil {
		t.Status = *upd.Status
		if *upd.Status == models.TicketStatusClosed {
			if t.ClosedAt == nil {
				now := time.Now()
				t.ClosedAt = &now
			}
		} else {
			t.ClosedAt = nil
		}
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.AssignedTo != nil {
		t.AssignedTo = *upd.AssignedTo
	}

	tags := t.Tags
	if upd.Tags != nil {
		tags = dedupe(upd.Tags)
	}
	if len(upd.AddTags) > 0 {
		tags = dedupe(append(append([]string{}, tags...), upd.AddTags...))
	}
	if len(upd.RemoveTags) > 0 {
		tags = subtract(tags, upd.RemoveTags)
	}
	t.Tags = tags

	t.UpdatedAt = time.Now()
	if err := s.store.UpdateTicket(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tg := range tags {
		if tg == "" || seen[tg] {
			continue
		}
		seen[tg] = true
		out = append(out, tg)
	}
	return out
}

func subtract(tags, remove []string) []string {
	rm := make(map[string]bool, len(remove))
	for _, r := range remove {
		rm[r] = true
	}
	out := make([]string, 0, len(tags))
	for _, tg := range tags {
		if !rm[tg] {
			out = append(out, tg)
		}
	}
	return out
}

func (s *Service) AddNote(ctx context.Context, tenantID, identifier, content, author string) (*models.TicketNote, error) {
	t, err := s.resolve(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	n := &models.TicketNote{
		ID:        uuid.New().String(),
		TicketID:  t.ID,
		Content:   content,
		Author:    author,
		CreatedAt: time.Now(),
	}
	if err := s.store.AddNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) ListNotes(ctx context.Context, tenantID, identifier string) ([]models.TicketNote, error) {
	t, err := s.resolve(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	return s.store.ListNotes(ctx, t.ID)
}

// ResetConversation clears all but, optionally, the first message.
func (s *Service) ResetConversation(ctx context.Context, tenantID, identifier string, keepFirst bool) error {
	t, err := s.resolve(ctx, tenantID, identifier)
	if err != nil {
		return err
	}
	unlock := s.store.Lock(t.ID)
	defer unlock()
	return s.store.ResetMessages(ctx, t.ID, keepFirst)
}

// GetRecommendation returns the cached recommendation if fresh, else
// generates a new one via the LLM adapter and caches it.
func (s *Service) GetRecommendation(ctx context.Context, tenantID, identifier string) (*models.AIRecommendation, error) {
	view, err := s.GetTicket(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	if view.Recommendation != nil {
		return view.Recommendation, nil
	}
	return s.generateRecommendation(ctx, view)
}

func (s *Service) generateRecommendation(ctx context.Context, view *TicketView) (*models.AIRecommendation, error) {
	if s.llmAdapter == nil {
		return nil, fmt.Errorf("%w: no language model adapter configured", llm.ErrUnavailable)
	}

	latest := ""
	if len(view.Messages) > 0 {
		latest = view.Messages[len(view.Messages)-1].Content
	}
	uc := urgency.Classify(latest)
	isVIP := view.Analytics != nil && view.Analytics.IsVIP
	ltv, churn := 0.0, 0.0
	if view.Analytics != nil {
		ltv = view.Analytics.LTV
		churn = view.Analytics.Churn.Score
	}
	pd := urgency.DecidePriority(uc, isVIP, ltv, churn, view.Ticket.Tags)

	var kbContext []string
	if s.kb != nil {
		kbContext = s.kb.ContextFor(ctx, latest)
	}

	req := llm.RecommendRequest{
		Ticket:    view.Ticket,
		Analytics: view.Analytics,
		Urgency:   uc,
		Priority:  pd,
		History:   view.Messages,
		KBContext: kbContext,
	}

	result, err := s.llmAdapter.Recommend(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &models.AIRecommendation{
		TicketID:        view.Ticket.ID,
		Priority:        pd.Priority,
		Actions:         result.Actions,
		TalkingPoints:   result.TalkingPoints,
		Warnings:        result.Warnings,
		EstimatedImpact: result.EstimatedImpact,
		MessageCount:    len(view.Messages),
		GeneratedAt:     now,
		ExpiresAt:       now.Add(recommendationTTL),
	}
	unlock := s.store.Lock(view.Ticket.ID)
	defer unlock()
	if err := s.store.SaveRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetDraft returns the cached draft if the recommendation backing it is
// still fresh, else produces a fresh draft via RegenerateDraft; the
// recommendation itself is not regenerated.
func (s *Service) GetDraft(ctx context.Context, tenantID, identifier string, opts llm.DraftOptions) (*models.DraftResponse, error) {
	view, err := s.GetTicket(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	if view.Recommendation != nil && view.Recommendation.Draft != nil {
		return view.Recommendation.Draft, nil
	}
	return s.RegenerateDraft(ctx, tenantID, identifier, opts)
}

// RegenerateDraft always produces a fresh draft; it never consults the
// recommendation cache.
func (s *Service) RegenerateDraft(ctx context.Context, tenantID, identifier string, opts llm.DraftOptions) (*models.DraftResponse, error) {
	view, err := s.GetTicket(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	if s.llmAdapter == nil {
		return nil, fmt.Errorf("%w: no language model adapter configured", llm.ErrUnavailable)
	}

	latest := ""
	if len(view.Messages) > 0 {
		latest = view.Messages[len(view.Messages)-1].Content
	}
	uc := urgency.Classify(latest)
	isVIP := view.Analytics != nil && view.Analytics.IsVIP
	ltv, churn := 0.0, 0.0
	if view.Analytics != nil {
		ltv = view.Analytics.LTV
		churn = view.Analytics.Churn.Score
	}
	pd := urgency.DecidePriority(uc, isVIP, ltv, churn, view.Ticket.Tags)

	req := llm.RecommendRequest{Ticket: view.Ticket, Analytics: view.Analytics, Urgency: uc, Priority: pd, History: view.Messages}

	draft, err := s.llmAdapter.Draft(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	unlock := s.store.Lock(view.Ticket.ID)
	defer unlock()
	rec, err := s.store.GetRecommendation(ctx, view.Ticket.ID)
	if err == nil {
		rec.Draft = draft
		rec.MessageCount = len(view.Messages)
		_ = s.store.SaveRecommendation(ctx, rec)
	}
	return draft, nil
}

// MarkActionCompleted sets or clears completed_at for a recommended
// action by its index within the cached recommendation.
func (s *Service) MarkActionCompleted(ctx context.Context, tenantID, identifier string, index int, completed bool) error {
	t, err := s.resolve(ctx, tenantID, identifier)
	if err != nil {
		return err
	}
	unlock := s.store.Lock(t.ID)
	defer unlock()
	rec, err := s.store.GetRecommendation(ctx, t.ID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rec.Actions) {
		return fmt.Errorf("action index %d out of range", index)
	}
	if completed {
		now := time.Now()
		rec.Actions[index].CompletedAt = &now
	} else {
		rec.Actions[index].CompletedAt = nil
	}
	return s.store.SaveRecommendation(ctx, rec)
}

func (s *Service) GetScoreBreakdown(ctx context.Context, tenantID, identifier string, topicAlerts []string) (*models.ScoreBreakdown, error) {
	view, err := s.GetTicket(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}
	latest := ""
	if len(view.Messages) > 0 {
		latest = view.Messages[len(view.Messages)-1].Content
	}
	frustrated := scorer.HasSentimentMarker(latest)
	bd := scorer.Score(view.Ticket, view.Analytics, latest, frustrated, topicAlerts)
	return &bd, nil
}
