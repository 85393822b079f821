// Package analytics implements C6: reading customer profile, churn risk,
// and archetype data, merging it with cache-first access and deriving
// communication-style hints and churn bands.
package analytics

import (
	"context"
	"errors"

	"github.com/securizon/internal/cache"
	"github.com/securizon/internal/tenant"
	"github.com/securizon/internal/urgency"
	"github.com/securizon/pkg/models"
)

var ErrNotFound = errors.New("customer analytics not found")

// ProfileRow is the base profile read from the (out-of-scope) analytical
// store: archetype id, dominant segments, LTV, orders, AOV, days since
// last purchase, tenure, churn score.
type ProfileRow struct {
	CustomerID            string
	ArchetypeID           string
	DominantSegments      []string
	LTV                   float64
	TotalOrders           int
	AOV                   float64
	DaysSinceLastPurchase int
	TenureDays            int
	ChurnScore            float64
	Tags                  []string
}

// ProfileStore is the out-of-scope analytical store contract.
type ProfileStore interface {
	GetProfile(ctx context.Context, customerID string) (*ProfileRow, error)
}

type Service struct {
	store ProfileStore
	cache *cache.Manager
}

func New(store ProfileStore, c *cache.Manager) *Service {
	return &Service{store: store, cache: c}
}

func tenantID(ctx context.Context) string {
	if rc := tenant.FromContext(ctx); rc != nil {
		return rc.TenantID
	}
	return ""
}

// GetCustomerAnalytics implements spec §4.6 steps 1-5.
func (s *Service) GetCustomerAnalytics(ctx context.Context, customerID string) (*models.CustomerAnalytics, error) {
	key := cache.Key(tenantID(ctx), "customer", customerID)

	var cached models.CustomerAnalytics
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	row, err := s.store.GetProfile(ctx, customerID)
	if err != nil {
		return nil, ErrNotFound
	}

	hints := communicationHints(row)
	band := ChurnBand(row.ChurnScore)

	result := &models.CustomerAnalytics{
		CustomerID:            row.CustomerID,
		LTV:                   row.LTV,
		TotalOrders:           row.TotalOrders,
		AOV:                   row.AOV,
		DaysSinceLastPurchase: row.DaysSinceLastPurchase,
		TenureDays:            row.TenureDays,
		Churn:                 models.ChurnPrediction{Score: row.ChurnScore, RiskLevel: band},
		DominantSegments:      row.DominantSegments,
		ArchetypeID:           row.ArchetypeID,
		CommunicationHints:    hints,
		IsVIP:                 isVIPTagSet(row.Tags),
		Tags:                  row.Tags,
	}

	s.cache.Set(ctx, key, result, cache.TTLCustomerProfile)
	return result, nil
}

// GetChurnPrediction is the narrower 30-minute-TTL read.
func (s *Service) GetChurnPrediction(ctx context.Context, customerID string) (*models.ChurnPrediction, error) {
	key := cache.Key(tenantID(ctx), "churn", customerID)

	var cached models.ChurnPrediction
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	row, err := s.store.GetProfile(ctx, customerID)
	if err != nil {
		return nil, ErrNotFound
	}

	result := &models.ChurnPrediction{Score: row.ChurnScore, RiskLevel: ChurnBand(row.ChurnScore)}
	s.cache.Set(ctx, key, result, cache.TTLChurnPrediction)
	return result, nil
}

// ChurnBand implements the thresholds from spec §4.6 step 4.
func ChurnBand(score float64) models.ChurnRiskLevel {
	switch {
	case score < 0.3:
		return models.ChurnLow
	case score < 0.5:
		return models.ChurnMedium
	case score < 0.7:
		return models.ChurnHigh
	default:
		return models.ChurnCritical
	}
}

// communicationHints are background context only and must never override
// explicit customer-stated facts (spec §4.6 step 3).
func communicationHints(row *ProfileRow) []string {
	var hints []string
	for _, seg := range row.DominantSegments {
		switch seg {
		case "price_sensitive":
			hints = append(hints, "price_sensitive")
		case "frequent_buyer":
			hints = append(hints, "frequent_purchase_cadence")
		case "occasional_buyer":
			hints = append(hints, "infrequent_purchase_cadence")
		case "returner":
			hints = append(hints, "elevated_return_behavior")
		}
	}
	if row.TotalOrders == 0 {
		hints = append(hints, "new_account_zero_orders")
	} else if row.DaysSinceLastPurchase > 180 {
		hints = append(hints, "low_engagement_with_prior_orders")
	}
	return hints
}

func isVIPTagSet(tags []string) bool {
	return urgency.HasLCCTag(tags)
}
