package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/securizon/internal/apierr"
	"github.com/securizon/internal/feature"
	"github.com/securizon/internal/llm"
	"github.com/securizon/internal/tenant"
	"github.com/securizon/internal/ticket"
	"github.com/securizon/pkg/models"
)

// APIResponse is the uniform envelope for every handler response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

type APIError struct {
	Code    apierr.Code `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type APIMeta struct {
	Total   int  `json:"total,omitempty"`
	Page    int  `json:"page,omitempty"`
	Limit   int  `json:"limit,omitempty"`
	HasMore bool `json:"has_more,omitempty"`
}

func writeJSONResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccessResponse(w http.ResponseWriter, data interface{}, meta *APIMeta) {
	writeJSONResponse(w, http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

// writeErrorResponse renders err through the closed apierr code set; any
// opaque error degrades to apierr.Internal rather than leaking detail.
func writeErrorResponse(w http.ResponseWriter, err error) {
	e := apierr.As(err)
	writeJSONResponse(w, e.HTTPCode, APIResponse{
		Success: false,
		Error:   &APIError{Code: e.Code, Message: e.Message, Details: e.Details},
	})
}

func parseRequestBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apierr.Validation("invalid request body: " + err.Error())
	}
	return nil
}

func tenantIDFrom(r *http.Request) (string, error) {
	rc := tenant.FromContext(r.Context())
	if rc == nil {
		return "", apierr.Unauth("tenant not identified")
	}
	return rc.TenantID, nil
}

func clientKeyFromRequest(r *http.Request) string {
	if rc := tenant.FromContext(r.Context()); rc != nil {
		return "nlquery:" + rc.TenantID
	}
	return "nlquery:" + r.RemoteAddr
}

// Webhook handler (middleware has already identified the tenant and
// verified the signature; this decodes the buffered body and hands it to
// the pipeline, which runs the ingestion steps).

func (g *Gateway) handleWebhook(w http.ResponseWriter, r *http.Request) {
	rc := tenant.FromContext(r.Context())
	if rc == nil {
		writeErrorResponse(w, apierr.Unauth("tenant not identified"))
		return
	}
	t, err := g.tenants.GetTenant(r.Context(), rc.TenantID)
	if err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TenantNotFound, "tenant not found"))
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrorResponse(w, apierr.Validation("invalid JSON payload"))
		return
	}

	result := g.pipeline.Ingest(r.Context(), t, payload)
	writeJSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"accepted": result.Accepted,
		"reason":   string(result.Reason),
	})
}

// MCP handlers (C12)

func (g *Gateway) handleMCPQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToolName   string                 `json:"tool_name"`
		Parameters map[string]interface{} `json:"parameters"`
	}
	if err := parseRequestBody(r, &req); err != nil {
		writeErrorResponse(w, err)
		return
	}
	if req.ToolName == "" {
		writeErrorResponse(w, apierr.Validation("tool_name is required"))
		return
	}
	result, err := g.nlRouter.Dispatch(r.Context(), req.ToolName, req.Parameters)
	if err != nil {
		writeErrorResponse(w, apierr.Upstream(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"tool_name": req.ToolName,
		"result":    result,
		"timestamp": time.Now().UTC(),
	})
}

func (g *Gateway) handleMCPQueryNL(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeErrorResponse(w, apierr.Validation("query parameter is required"))
		return
	}

	allowed, retryAfter := g.nlLimiter.Allow(clientKeyFromRequest(r))
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeErrorResponse(w, apierr.RateLimit("natural-language query rate limit exceeded"))
		return
	}

	userCtx := feature.UserContext{Environment: g.config.Environment}
	if rc := tenant.FromContext(r.Context()); rc != nil {
		userCtx.ID = rc.TenantID
		userCtx.Environment = string(rc.Environment)
	}

	resp, err := g.nlRouter.Route(r.Context(), query, userCtx)
	if err != nil {
		writeErrorResponse(w, apierr.Upstream(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// Ticket handlers (C11)

func (g *Gateway) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	q := r.URL.Query()
	filter := ticket.Filter{
		Status:     models.TicketStatus(q.Get("status")),
		Priority:   models.TicketPriority(q.Get("priority")),
		Channel:    q.Get("channel"),
		AssignedTo: q.Get("assigned_to"),
		CustomerID: q.Get("customer_id"),
		SmartOrder: q.Get("smart_order") == "true",
		Sort:       q.Get("sort"),
		Order:      q.Get("order"),
	}
	if v := q.Get("page"); v != "" {
		filter.Page, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("topic_alerts"); v != "" {
		filter.TopicAlerts = strings.Split(v, ",")
	}

	scored, err := g.tickets.ListTickets(r.Context(), tenantID, filter)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	matches := 0
	entries := make([]map[string]interface{}, 0, len(scored))
	for _, st := range scored {
		entry := map[string]interface{}{"ticket": st.Ticket}
		if filter.SmartOrder {
			entry["smart_score"] = st.Breakdown.Total
			entry["matches_topic_alert"] = st.Breakdown.MatchesTopicAlert
			if st.Breakdown.MatchesTopicAlert {
				matches++
			}
		}
		entries = append(entries, entry)
	}

	writeSuccessResponse(w, map[string]interface{}{
		"tickets":              entries,
		"smart_order_enabled":  filter.SmartOrder,
		"topic_alerts_active":  filter.TopicAlerts,
		"matches":              matches,
	}, &APIMeta{Total: len(entries), Page: filter.Page, Limit: filter.Limit})
}

func (g *Gateway) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	var req struct {
		Ticket         models.Ticket        `json:"ticket"`
		InitialMessage *models.TicketMessage `json:"initial_message"`
	}
	if err := parseRequestBody(r, &req); err != nil {
		writeErrorResponse(w, err)
		return
	}
	created, err := g.tickets.CreateTicket(r.Context(), tenantID, &req.Ticket, req.InitialMessage)
	if err != nil {
		writeErrorResponse(w, apierr.InternalErr(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, APIResponse{Success: true, Data: created})
}

func (g *Gateway) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	view, err := g.tickets.GetTicket(r.Context(), tenantID, id)
	if err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, "ticket not found"))
		return
	}
	writeSuccessResponse(w, view, nil)
}

func (g *Gateway) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]

	var body struct {
		Status     *models.TicketStatus   `json:"status"`
		Priority   *models.TicketPriority `json:"priority"`
		AssignedTo *string                `json:"assigned_to"`
		Tags       []string               `json:"tags"`
		AddTags    []string               `json:"add_tags"`
		RemoveTags []string               `json:"remove_tags"`
	}
	if err := parseRequestBody(r, &body); err != nil {
		writeErrorResponse(w, err)
		return
	}

	upd := ticket.TicketUpdate{
		Status:     body.Status,
		Priority:   body.Priority,
		AssignedTo: body.AssignedTo,
		Tags:       body.Tags,
		AddTags:    body.AddTags,
		RemoveTags: body.RemoveTags,
	}
	updated, err := g.tickets.UpdateTicket(r.Context(), tenantID, id, upd)
	if err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, "ticket not found"))
		return
	}
	writeSuccessResponse(w, updated, nil)
}

func (g *Gateway) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]

	var body struct {
		Content     string `json:"content"`
		Author      string `json:"author"`
		FromAgent   bool   `json:"from_agent"`
		Via         string `json:"via"`
		Channel     string `json:"channel"`
		CloseTicket bool   `json:"close_ticket"`
	}
	if err := parseRequestBody(r, &body); err != nil {
		writeErrorResponse(w, err)
		return
	}

	msg := &models.TicketMessage{
		Content:   body.Content,
		Author:    body.Author,
		FromAgent: body.FromAgent,
		Via:       body.Via,
		Channel:   body.Channel,
	}
	updated, err := g.tickets.AppendMessage(r.Context(), tenantID, id, msg, body.CloseTicket)
	if err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, "ticket not found"))
		return
	}
	writeSuccessResponse(w, updated, nil)
}

func (g *Gateway) handleAddNote(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]

	var body struct {
		Content string `json:"content"`
		Author  string `json:"author"`
	}
	if err := parseRequestBody(r, &body); err != nil {
		writeErrorResponse(w, err)
		return
	}
	note, err := g.tickets.AddNote(r.Context(), tenantID, id, body.Content, body.Author)
	if err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, "ticket not found"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, APIResponse{Success: true, Data: note})
}

func (g *Gateway) handleListNotes(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	notes, err := g.tickets.ListNotes(r.Context(), tenantID, id)
	if err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, "ticket not found"))
		return
	}
	writeSuccessResponse(w, notes, nil)
}

func (g *Gateway) handleScoreBreakdown(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	var topicAlerts []string
	if v := r.URL.Query().Get("topic_alerts"); v != "" {
		topicAlerts = strings.Split(v, ",")
	}
	bd, err := g.tickets.GetScoreBreakdown(r.Context(), tenantID, id, topicAlerts)
	if err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, "ticket not found"))
		return
	}
	writeSuccessResponse(w, bd, nil)
}

func (g *Gateway) handleResetConversation(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	var body struct {
		KeepFirst bool `json:"keep_first"`
	}
	_ = parseRequestBody(r, &body)
	if err := g.tickets.ResetConversation(r.Context(), tenantID, id, body.KeepFirst); err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, "ticket not found"))
		return
	}
	writeSuccessResponse(w, map[string]string{"id": id, "status": "reset"}, nil)
}

// AI handlers (C9 step 9 / C11 recommendation + draft)

func (g *Gateway) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	rec, err := g.tickets.GetRecommendation(r.Context(), tenantID, id)
	if err != nil {
		writeErrorResponse(w, aiError(err))
		return
	}
	writeSuccessResponse(w, rec, nil)
}

func (g *Gateway) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	draft, err := g.tickets.GetDraft(r.Context(), tenantID, id, draftOptionsFromQuery(r))
	if err != nil {
		writeErrorResponse(w, aiError(err))
		return
	}
	writeSuccessResponse(w, draft, nil)
}

func (g *Gateway) handleRegenerateDraft(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id := mux.Vars(r)["id"]

	var body llm.DraftOptions
	_ = parseRequestBody(r, &body)

	draft, err := g.tickets.RegenerateDraft(r.Context(), tenantID, id, body)
	if err != nil {
		writeErrorResponse(w, aiError(err))
		return
	}
	writeSuccessResponse(w, draft, nil)
}

func (g *Gateway) handleMarkAction(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFrom(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	vars := mux.Vars(r)
	id := vars["id"]
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		writeErrorResponse(w, apierr.Validation("action index must be an integer"))
		return
	}

	var body struct {
		Completed bool `json:"completed"`
	}
	if err := parseRequestBody(r, &body); err != nil {
		writeErrorResponse(w, err)
		return
	}

	if err := g.tickets.MarkActionCompleted(r.Context(), tenantID, id, index, body.Completed); err != nil {
		writeErrorResponse(w, apierr.NotFound(apierr.TicketNotFound, err.Error()))
		return
	}
	writeSuccessResponse(w, map[string]interface{}{"id": id, "index": index, "completed": body.Completed}, nil)
}

func draftOptionsFromQuery(r *http.Request) llm.DraftOptions {
	q := r.URL.Query()
	return llm.DraftOptions{
		Tone:         q.Get("tone"),
		Length:       q.Get("length"),
		IncludeOffer: q.Get("include_offer") == "true",
		Template:     q.Get("template"),
	}
}

// aiError maps any recommendation/draft failure to UPSTREAM_FAILURE, per
// spec §4.13/§7: LLM failures on these endpoints surface directly rather
// than masquerading as a missing ticket.
func aiError(err error) error {
	return apierr.Upstream(err.Error())
}

// Metrics handler

func (g *Gateway) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := g.metrics.snapshot()
	writeSuccessResponse(w, map[string]interface{}{
		"total_requests":      snap.TotalRequests,
		"requests_by_status":  snap.RequestsByStatus,
		"requests_by_path":    snap.RequestsByPath,
	}, nil)
}
