package feature

import (
	"context"
	"testing"
)

func TestIsEnabledBooleanFlag(t *testing.T) {
	backend := NewStaticBackend(DefaultFeatureFlags)
	mgr := NewFeatureFlagManager(backend)

	enabled, err := mgr.IsEnabled(context.Background(), "ENABLE_PROMETHEUS_METRICS", UserContext{})
	if err != nil {
		t.Fatalf("IsEnabled: %v", err)
	}
	if !enabled {
		t.Error("ENABLE_PROMETHEUS_METRICS defaults to enabled")
	}

	enabled, err = mgr.IsEnabled(context.Background(), "USE_CONSOLIDATED_MCP_TOOLS", UserContext{})
	if err != nil {
		t.Fatalf("IsEnabled: %v", err)
	}
	if enabled {
		t.Error("USE_CONSOLIDATED_MCP_TOOLS defaults to disabled")
	}
}

func TestIsEnabledUnknownFlag(t *testing.T) {
	backend := NewStaticBackend(DefaultFeatureFlags)
	mgr := NewFeatureFlagManager(backend)

	if _, err := mgr.IsEnabled(context.Background(), "NOT_A_REAL_FLAG", UserContext{}); err == nil {
		t.Error("expected an error for an unrecognized flag name")
	}
}

func TestIsEnabledUserTargeting(t *testing.T) {
	backend := NewStaticBackend(map[string]FeatureFlag{
		"BETA_FEATURE": {Name: "BETA_FEATURE", Enabled: true, Type: "user", Users: []string{"alice@example.com"}},
	})
	mgr := NewFeatureFlagManager(backend)

	enabled, err := mgr.IsEnabled(context.Background(), "BETA_FEATURE", UserContext{Email: "alice@example.com"})
	if err != nil || !enabled {
		t.Fatalf("IsEnabled(alice) = (%v, %v), want (true, nil)", enabled, err)
	}

	// different user name, fresh manager to avoid the 5-minute flag cache
	mgr2 := NewFeatureFlagManager(backend)
	enabled, err = mgr2.IsEnabled(context.Background(), "BETA_FEATURE", UserContext{Email: "bob@example.com"})
	if err != nil || enabled {
		t.Fatalf("IsEnabled(bob) = (%v, %v), want (false, nil)", enabled, err)
	}
}

func TestIsEnabledGroupTargeting(t *testing.T) {
	backend := NewStaticBackend(map[string]FeatureFlag{
		"BETA_FEATURE": {Name: "BETA_FEATURE", Enabled: true, Type: "user", Groups: []string{"beta-testers"}},
	})
	mgr := NewFeatureFlagManager(backend)

	enabled, err := mgr.IsEnabled(context.Background(), "BETA_FEATURE", UserContext{Groups: []string{"beta-testers"}})
	if err != nil || !enabled {
		t.Fatalf("IsEnabled(in group) = (%v, %v), want (true, nil)", enabled, err)
	}
}

func TestIsEnabledDisabledFlagShortCircuits(t *testing.T) {
	backend := NewStaticBackend(map[string]FeatureFlag{
		"OFF": {Name: "OFF", Enabled: false, Type: "percentage", Percentage: 100},
	})
	mgr := NewFeatureFlagManager(backend)

	enabled, err := mgr.IsEnabled(context.Background(), "OFF", UserContext{ID: "anyone"})
	if err != nil || enabled {
		t.Fatalf("IsEnabled(disabled, 100%%) = (%v, %v), want (false, nil)", enabled, err)
	}
}
