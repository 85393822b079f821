package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/securizon/internal/analytics"
	"github.com/securizon/internal/customer"
	"github.com/securizon/internal/events"
	"github.com/securizon/internal/llm"
	"github.com/securizon/internal/obslog"
	"github.com/securizon/internal/provider"
	"github.com/securizon/internal/tenant"
	"github.com/securizon/internal/ticket"
	"github.com/securizon/internal/urgency"
	"github.com/securizon/pkg/models"
)

// maxInFlight bounds how many async enrichment runs execute at once.
// Every accepted webhook still starts its own goroutine, which waits on
// the semaphore; the number of waiting goroutines is not bounded.
const maxInFlight = 32

// ProviderFactory resolves the write-back client for a tenant's CRM.
type ProviderFactory func(t *tenant.Tenant) provider.WriteBack

// Pipeline is C9: synchronous normalization/filtering/acceptance,
// followed by an asynchronous enrichment run.
type Pipeline struct {
	Tickets   *ticket.Service
	Analytics *analytics.Service
	Identity  customer.IdentityLookup
	Providers ProviderFactory
	Events    events.EventBus

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewPipeline(tickets *ticket.Service, analyticsSvc *analytics.Service, identity customer.IdentityLookup, providers ProviderFactory, bus events.EventBus) *Pipeline {
	return &Pipeline{
		Tickets:   tickets,
		Analytics: analyticsSvc,
		Identity:  identity,
		Providers: providers,
		Events:    bus,
		sem:       make(chan struct{}, maxInFlight),
	}
}

// Result is returned synchronously to the webhook handler.
type Result struct {
	Accepted bool
	Reason   SkipReason
	Envelope *Envelope
}

// Ingest runs steps 1-4 synchronously and, if accepted, detaches steps
// 5-12 (starting with the analytics fetch) into a background goroutine
// so the caller can return 202 immediately.
func (p *Pipeline) Ingest(ctx context.Context, t *tenant.Tenant, payload map[string]interface{}) Result {
	env := Normalize(payload)
	source := DetectSource(env)
	env.Source = string(source)

	ok, reason := ShouldProcess(env, source)
	if !ok {
		return Result{Accepted: false, Reason: reason, Envelope: env}
	}

	customerID, err := customer.Resolve(ctx, env.Customer, p.Identity)
	if err != nil {
		obslog.Warnf(ctx, "ingestion: customer resolution failed: %v", err)
		return Result{Accepted: false, Reason: "customer_unidentified", Envelope: env}
	}

	p.wg.Add(1)
	go p.enrich(t, env, customerID, source)

	return Result{Accepted: true, Envelope: env}
}

// Drain blocks until every in-flight enrichment run completes, or the
// context is done. Called during graceful shutdown.
func (p *Pipeline) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (p *Pipeline) enrich(t *tenant.Tenant, env *Envelope, customerID string, source Source) {
	defer p.wg.Done()
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	ctx = tenant.WithRequestContext(ctx, tenant.NewRequestContext(t.ID, t.Slug, t.Environment, ""))

	latest, _ := env.LatestMessage()

	// Step 5: fetch internal analytics. Metrics embedded in the provider
	// payload are not merged in.
	var analyticsView *models.CustomerAnalytics
	if p.Analytics != nil {
		if a, err := p.Analytics.GetCustomerAnalytics(ctx, customerID); err == nil {
			analyticsView = a
		}
	}

	// Step 6-7: urgency then priority.
	uc := urgency.Classify(latest.Content)
	isVIP := analyticsView != nil && analyticsView.IsVIP
	ltv, churn := 0.0, 0.0
	if analyticsView != nil {
		ltv = analyticsView.LTV
		churn = analyticsView.Churn.Score
	}
	pd := urgency.DecidePriority(uc, isVIP, ltv, churn, env.Ticket.Tags)

	var writeback provider.WriteBack
	if p.Providers != nil {
		writeback = p.Providers(t)
	}

	notePosted := false
	remoteTicketID := env.Ticket.ID

	// Step 8: write priority & tags back to the provider. Transient
	// failures stop further write-backs for this event but do not
	// undo the persisted recommendation (spec §4.9 failure semantics).
	if writeback != nil {
		if err := writeback.UpdatePriorityAndTags(ctx, remoteTicketID, string(pd.Priority), pd.Tags); err != nil {
			obslog.Errorf(ctx, "ingestion: provider write-back (priority/tags) failed: %v", err)
			p.publish(ctx, t, "", pd, uc, source, isVIP, false)
			return
		}
	}

	ticketID := p.syncLocalTicket(ctx, t, env, customerID, pd, latest)
	if ticketID == "" {
		p.publish(ctx, t, "", pd, uc, source, isVIP, false)
		return
	}

	// Step 9: draft generation via the ticket service (which composes
	// urgency/priority/analytics context and calls the LLM adapter).
	draft, err := p.Tickets.GetDraft(ctx, t.ID, ticketID, llm.DraftOptions{})
	if err != nil {
		obslog.Warnf(ctx, "ingestion: draft generation failed: %v", err)
		p.publish(ctx, t, ticketID, pd, uc, source, isVIP, false)
		return
	}

	// Step 10: post the generated text as an internal note.
	if writeback != nil {
		if err := writeback.PostInternalNote(ctx, remoteTicketID, draft.Text); err != nil {
			obslog.Errorf(ctx, "ingestion: provider write-back (note) failed: %v", err)
		} else {
			notePosted = true
		}
	}

	p.publish(ctx, t, ticketID, pd, uc, source, isVIP, notePosted)
}

// syncLocalTicket ensures the incoming ticket/message exists in the
// local store, creating it on first sight or appending the latest
// message to an existing one. Returns "" on failure.
func (p *Pipeline) syncLocalTicket(ctx context.Context, t *tenant.Tenant, env *Envelope, customerID string, pd models.PriorityDecision, latest RawMessage) string {
	msg := &models.TicketMessage{
		Content:   latest.Content,
		Author:    latest.Author,
		FromAgent: latest.FromAgent,
		Via:       latest.Via,
		Channel:   latest.Channel,
	}

	view, err := p.Tickets.GetTicket(ctx, t.ID, env.Ticket.Number)
	if err == nil {
		if _, err := p.Tickets.AppendMessage(ctx, t.ID, env.Ticket.Number, msg, false); err != nil {
			obslog.Errorf(ctx, "ingestion: failed to append message: %v", err)
			return ""
		}
		return view.Ticket.ID
	}

	newTicket := &models.Ticket{
		CustomerID:   customerID,
		Channel:      env.Ticket.Channel,
		Subject:      env.Ticket.Subject,
		Priority:     pd.Priority,
		Tags:         pd.Tags,
		TicketNumber: env.Ticket.Number,
	}
	created, err := p.Tickets.CreateFromWebhook(ctx, t.ID, env.Ticket.Number, newTicket, msg)
	if err != nil {
		obslog.Errorf(ctx, "ingestion: failed to create ticket: %v", err)
		return ""
	}
	return created.ID
}

func (p *Pipeline) publish(ctx context.Context, t *tenant.Tenant, ticketID string, pd models.PriorityDecision, uc models.UrgencyClassification, source Source, lcc, notePosted bool) {
	if p.Events == nil {
		return
	}
	evt := models.NewTicketIngestedEvent(t.ID, ticketID, pd.Priority, uc.Category, string(source), lcc, notePosted)
	if err := p.Events.PublishEvent(ctx, events.TopicTicketIngested, evt); err != nil {
		obslog.Errorf(ctx, "ingestion: failed to publish observability event: %v", err)
	}
}
