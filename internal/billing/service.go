// Package billing is trimmed to the single read the ticket domain needs:
// the subscription status used to populate Tenant.Subscription.Status.
// The status is stored on the tenant record; no other package reads it. The
// checkout/invoicing surface in the teacher has no SPEC_FULL.md
// component and is dropped (see DESIGN.md).
package billing

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/sub"

	"github.com/securizon/internal/tenant"
)

type Service struct {
	tenantStore tenant.Store
}

func NewService(stripeKey string, tenantStore tenant.Store) *Service {
	stripe.Key = stripeKey
	return &Service{tenantStore: tenantStore}
}

// SubscriptionStatus reads the live Stripe subscription status for a
// tenant's stored subscription id (active, past_due, unpaid, ...).
func (s *Service) SubscriptionStatus(ctx context.Context, stripeSubscriptionID string) (string, error) {
	if stripeSubscriptionID == "" {
		return "active", nil
	}
	subscription, err := sub.Get(stripeSubscriptionID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read stripe subscription: %w", err)
	}
	return string(subscription.Status), nil
}

// RefreshTenantSubscription updates the tenant's cached subscription
// status from Stripe; called from the hourly runBillingRefresh loop in
// cmd/gateway.
func (s *Service) RefreshTenantSubscription(ctx context.Context, t *tenant.Tenant, stripeSubscriptionID string) error {
	status, err := s.SubscriptionStatus(ctx, stripeSubscriptionID)
	if err != nil {
		return err
	}
	t.Subscription.Status = status
	return s.tenantStore.UpdateTenant(ctx, t)
}
