package nlquery

import (
	"context"
	"testing"

	"github.com/securizon/internal/analytics"
	"github.com/securizon/internal/cache"
	"github.com/securizon/internal/feature"
	"github.com/securizon/pkg/models"
)

func newTestRouter(flagsEnabled bool) *Router {
	profileStore := analytics.NewMemProfileStore()
	profileStore.Put(&analytics.ProfileRow{CustomerID: "c1", LTV: 500})
	analyticsSvc := analytics.New(profileStore, cache.NewManager("", 0))

	backend := feature.NewStaticBackend(map[string]feature.FeatureFlag{
		"USE_CONSOLIDATED_MCP_TOOLS": {Name: "USE_CONSOLIDATED_MCP_TOOLS", Enabled: flagsEnabled, Type: "boolean"},
	})
	flags := feature.NewFeatureFlagManager(backend)

	return NewRouter(nil, flags, analyticsSvc)
}

func TestRouteWithoutAdapterReturnsFallback(t *testing.T) {
	r := newTestRouter(false)
	resp, err := r.Route(context.Background(), "how many vip customers churned", feature.UserContext{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if resp.QueryType != "general_response" {
		t.Errorf("QueryType = %q, want general_response", resp.QueryType)
	}
	if resp.Text != fallbackMessage {
		t.Errorf("Text = %q, want the fallback message", resp.Text)
	}
}

func TestDispatchLookupCustomer(t *testing.T) {
	r := newTestRouter(false)
	result, err := r.Dispatch(context.Background(), ToolLookupCustomer, map[string]interface{}{"customer_id": "c1"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got, ok := result.(*models.CustomerAnalytics)
	if !ok || got == nil {
		t.Fatalf("expected a non-nil *models.CustomerAnalytics result, got %T", result)
	}
}

func TestDispatchMissingCustomerID(t *testing.T) {
	r := newTestRouter(false)
	result, err := r.Dispatch(context.Background(), ToolQueryCustomers, map[string]interface{}{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	m, ok := result.(map[string]interface{})
	if !ok || m["error"] == nil {
		t.Errorf("expected an error map for a missing customer_id, got %v", result)
	}
}

func TestDispatchUnmappedToolAcknowledgesWithoutInventingData(t *testing.T) {
	r := newTestRouter(false)
	result, err := r.Dispatch(context.Background(), ToolPlanCampaign, map[string]interface{}{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	m, ok := result.(map[string]interface{})
	if !ok || m["status"] != "not_implemented" {
		t.Errorf("expected a not_implemented acknowledgement, got %v", result)
	}
}
