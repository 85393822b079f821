package models

import "time"

type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPending TicketStatus = "pending"
	TicketStatusClosed  TicketStatus = "closed"
)

type TicketPriority string

const (
	PriorityUrgent TicketPriority = "urgent"
	PriorityHigh   TicketPriority = "high"
	PriorityNormal TicketPriority = "normal"
	PriorityLow    TicketPriority = "low"
)

// Ticket is owned by exactly one tenant; closed_at is set iff status=closed.
type Ticket struct {
	ID           string                 `json:"id"`
	TenantID     string                 `json:"-"`
	TicketNumber string                 `json:"ticket_number"`
	CustomerID   string                 `json:"customer_id"`
	Channel      string                 `json:"channel"`
	Status       TicketStatus           `json:"status"`
	Priority     TicketPriority         `json:"priority"`
	Subject      string                 `json:"subject"`
	AssignedTo   string                 `json:"assigned_to,omitempty"`
	Tags         []string               `json:"tags"`
	CustomFields map[string]interface{} `json:"custom_fields,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	ClosedAt     *time.Time             `json:"closed_at,omitempty"`
}

type TicketMessage struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	FromAgent bool      `json:"from_agent"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Via       string    `json:"via,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOwnInternalNote reports whether this message is a note the pipeline
// itself posted back to the provider (step 1's loop-prevention check).
func (m TicketMessage) IsOwnInternalNote() bool {
	return m.Via == "api" && m.Channel == "internal-note"
}

type TicketNote struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

type RecommendedAction struct {
	Priority    int        `json:"priority"`
	Action      string     `json:"action"`
	Reasoning   string     `json:"reasoning"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type DraftResponse struct {
	Text            string `json:"text"`
	Tone            string `json:"tone"`
	Personalization string `json:"personalization"`
}

// AIRecommendation is cached per ticket; at most one non-expired entry.
// It is stale if MessageCount differs from the ticket's current message
// count, independent of ExpiresAt.
type AIRecommendation struct {
	TicketID         string              `json:"ticket_id"`
	Priority         TicketPriority      `json:"priority"`
	Actions          []RecommendedAction `json:"actions"`
	TalkingPoints    []string            `json:"talking_points"`
	Warnings         []string            `json:"warnings"`
	EstimatedImpact  string              `json:"estimated_impact"`
	Draft            *DraftResponse      `json:"draft_response,omitempty"`
	MessageCount     int                 `json:"message_count"`
	GeneratedAt      time.Time           `json:"generated_at"`
	ExpiresAt        time.Time           `json:"expires_at"`
}

func (r *AIRecommendation) IsStale(currentMessageCount int) bool {
	if r == nil {
		return true
	}
	if r.MessageCount != currentMessageCount {
		return true
	}
	return time.Now().After(r.ExpiresAt)
}

type UrgencyLevel string

const (
	UrgencyUrgent UrgencyLevel = "urgent"
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyNormal UrgencyLevel = "normal"
)

type UrgencyCategory string

const (
	CategoryCancelRequest  UrgencyCategory = "cancel_request"
	CategoryAddressChange  UrgencyCategory = "address_change"
	CategoryOrderEdit      UrgencyCategory = "order_edit"
	CategoryDamagedProduct UrgencyCategory = "damaged_product"
	CategoryMissingItems   UrgencyCategory = "missing_items"
	CategoryDelayedOrder   UrgencyCategory = "delayed_order"
	CategoryGeneral        UrgencyCategory = "general"
)

type UrgencyClassification struct {
	Level            UrgencyLevel    `json:"urgency_level"`
	Category         UrgencyCategory `json:"category"`
	MatchedKeywords  []string        `json:"matched_keywords"`
	ProviderTag      string          `json:"provider_tag,omitempty"`
}

type PriorityDecision struct {
	Priority TicketPriority `json:"priority"`
	Reason   string         `json:"reason"`
	Tags     []string       `json:"tags"`
}

type ScoreBreakdown struct {
	ChurnRisk      float64            `json:"churn_risk"`
	CustomerValue  float64            `json:"customer_value"`
	Urgency        float64            `json:"urgency"`
	Age            float64            `json:"age"`
	Difficulty     float64            `json:"difficulty"`
	Sentiment      float64            `json:"sentiment"`
	TopicAlert     float64            `json:"topic_alert"`
	Weights        map[string]float64 `json:"weights"`
	Total          float64            `json:"total"`
	MatchesTopicAlert bool            `json:"matches_topic_alert"`
	TicketID       string             `json:"ticket_id"`
	CustomerID     string             `json:"customer_id"`
}

type ChurnRiskLevel string

const (
	ChurnLow      ChurnRiskLevel = "low"
	ChurnMedium   ChurnRiskLevel = "medium"
	ChurnHigh     ChurnRiskLevel = "high"
	ChurnCritical ChurnRiskLevel = "critical"
)

type ChurnPrediction struct {
	Score     float64        `json:"score"`
	RiskLevel ChurnRiskLevel `json:"risk_level"`
}

// CustomerAnalytics is a read model merging internal profile data with
// externally computed clustering/churn output. Not owned by this service.
type CustomerAnalytics struct {
	CustomerID            string          `json:"customer_id"`
	LTV                   float64         `json:"ltv"`
	TotalOrders           int             `json:"total_orders"`
	AOV                   float64         `json:"aov"`
	DaysSinceLastPurchase int             `json:"days_since_last_purchase"`
	TenureDays            int             `json:"tenure_days"`
	Churn                 ChurnPrediction `json:"churn"`
	DominantSegments      []string        `json:"dominant_segments"`
	ArchetypeID           string          `json:"archetype_id"`
	CommunicationHints    []string        `json:"communication_hints"`
	IsVIP                 bool            `json:"is_vip"`
	Tags                  []string        `json:"tags,omitempty"`
}
