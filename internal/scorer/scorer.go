// Package scorer implements the smart-order weighted multi-component
// inbox score (C10). Weights are named constants in one place so the
// breakdown endpoint can echo exactly what was used, per spec §9's
// Design Notes.
package scorer

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/securizon/pkg/models"
)

const (
	WeightChurnRisk     = 3.0
	WeightCustomerValue = 2.0
	WeightUrgency       = 1.5
	DifficultyEasyBonus = 1.0
	DifficultyHardPenalty = -1.5
	SentimentBonus      = 2.0
	TopicAlertBonus     = 5.0
)

var urgencyBase = map[models.TicketPriority]float64{
	models.PriorityUrgent: 4,
	models.PriorityHigh:   3,
	models.PriorityNormal: 1,
	models.PriorityLow:    0.5,
}

// difficultyEasyKeywords / difficultyHardKeywords are a small
// configurable list standing in for spec §9's unenumerated keyword table
// (an explicit Open Question, decided in favor of a bounded ± contribution).
var difficultyEasyKeywords = []string{
	"what is", "how do i", "where is", "what fabric", "what size", "track my order",
}

var difficultyHardKeywords = []string{
	"multiple orders", "across accounts", "several orders", "combine orders",
	"split shipment", "third-party", "integration", "sync issue",
}

var sentimentMarkers = []string{
	"frustrated", "furious", "angry", "unacceptable", "worst experience", "ridiculous",
}

type Sentiment struct {
	Frustrated bool
}

// Score computes the seven weighted components for a single ticket.
func Score(ticket *models.Ticket, analytics *models.CustomerAnalytics, latestMessage string, sentimentFrustrated bool, topicAlerts []string) models.ScoreBreakdown {
	var churnRisk, customerValue float64
	matchesTopicAlert := false

	if analytics != nil {
		churnRisk = analytics.Churn.Score * WeightChurnRisk
		customerValue = math.Min(analytics.LTV/1000, 10) * WeightCustomerValue
	}

	urgency := urgencyBase[ticket.Priority] * WeightUrgency

	age := ageComponent(ticket.CreatedAt)

	difficulty := difficultyComponent(latestMessage)

	sentiment := 0.0
	if sentimentFrustrated {
		sentiment = SentimentBonus
	}

	topicAlert := 0.0
	lowerMsg := strings.ToLower(latestMessage)
	for _, alert := range topicAlerts {
		if alert == "" {
			continue
		}
		if strings.Contains(lowerMsg, strings.ToLower(alert)) {
			topicAlert = TopicAlertBonus
			matchesTopicAlert = true
			break
		}
	}

	total := churnRisk + customerValue + urgency + age + difficulty + sentiment + topicAlert

	bd := models.ScoreBreakdown{
		ChurnRisk:     churnRisk,
		CustomerValue: customerValue,
		Urgency:       urgency,
		Age:           age,
		Difficulty:    difficulty,
		Sentiment:     sentiment,
		TopicAlert:    topicAlert,
		Total:         total,
		MatchesTopicAlert: matchesTopicAlert,
		TicketID:      ticket.ID,
		CustomerID:    ticket.CustomerID,
		Weights: map[string]float64{
			"churn_risk":     WeightChurnRisk,
			"customer_value": WeightCustomerValue,
			"urgency":        WeightUrgency,
			"difficulty_easy_bonus":   DifficultyEasyBonus,
			"difficulty_hard_penalty": DifficultyHardPenalty,
			"sentiment_bonus":         SentimentBonus,
			"topic_alert_bonus":       TopicAlertBonus,
		},
	}
	return bd
}

// ageComponent grows toward 1 as the ticket ages, bounded.
func ageComponent(createdAt time.Time) float64 {
	hours := time.Since(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return 1 - math.Exp(-hours/24)
}

func difficultyComponent(latestMessage string) float64 {
	lower := strings.ToLower(latestMessage)
	for _, kw := range difficultyHardKeywords {
		if strings.Contains(lower, kw) {
			return DifficultyHardPenalty
		}
	}
	if len(strings.Fields(latestMessage)) <= 12 {
		for _, kw := range difficultyEasyKeywords {
			if strings.Contains(lower, kw) {
				return DifficultyEasyBonus
			}
		}
	}
	return 0
}

// HasSentimentMarker is a small heuristic standing in for an external
// sentiment model: presence of any frustration marker in the text.
func HasSentimentMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range sentimentMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ScoredTicket pairs a ticket with its computed breakdown for sorting.
type ScoredTicket struct {
	Ticket    *models.Ticket
	Breakdown models.ScoreBreakdown
}

// SortSmartOrder sorts by total score descending; ties break by
// created_at ascending (older first), then ticket id lexicographically.
func SortSmartOrder(scored []ScoredTicket) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Breakdown.Total != b.Breakdown.Total {
			return a.Breakdown.Total > b.Breakdown.Total
		}
		if !a.Ticket.CreatedAt.Equal(b.Ticket.CreatedAt) {
			return a.Ticket.CreatedAt.Before(b.Ticket.CreatedAt)
		}
		return a.Ticket.ID < b.Ticket.ID
	})
}
