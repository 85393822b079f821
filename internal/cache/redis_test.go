package cache

import (
	"context"
	"testing"
	"time"
)

func TestKeyNamespacing(t *testing.T) {
	if got := Key("t1", "customer", "c1"); got != "tenant:t1:customer:c1" {
		t.Errorf("Key(tenant) = %q", got)
	}
	if got := Key("", "customer", "c1"); got != "global:customer:c1" {
		t.Errorf("Key(global) = %q", got)
	}
}

func TestSetGetRoundTripLocalOnly(t *testing.T) {
	m := NewManager("", 0)
	ctx := context.Background()

	type payload struct{ Value string }
	if ok := m.Set(ctx, "k1", payload{Value: "hi"}, time.Minute); !ok {
		t.Fatal("Set returned false")
	}

	var got payload
	if !m.Get(ctx, "k1", &got) {
		t.Fatal("Get returned a miss after Set")
	}
	if got.Value != "hi" {
		t.Errorf("Value = %q, want hi", got.Value)
	}
}

func TestGetMissWithoutRedis(t *testing.T) {
	m := NewManager("", 0)
	var got map[string]string
	if m.Get(context.Background(), "nope", &got) {
		t.Error("expected a miss for an unset key with no redis backing")
	}
}

func TestDeleteRemovesLocalEntry(t *testing.T) {
	m := NewManager("", 0)
	ctx := context.Background()
	m.Set(ctx, "k2", "v", time.Minute)
	m.Delete(ctx, "k2")

	var got string
	if m.Get(ctx, "k2", &got) {
		t.Error("expected a miss after Delete")
	}
}

func TestExists(t *testing.T) {
	m := NewManager("", 0)
	ctx := context.Background()
	if m.Exists(ctx, "k3") {
		t.Error("Exists should be false before Set")
	}
	m.Set(ctx, "k3", "v", time.Minute)
	if !m.Exists(ctx, "k3") {
		t.Error("Exists should be true after Set")
	}
}

func TestDeletePatternMatchesPrefix(t *testing.T) {
	m := NewManager("", 0)
	ctx := context.Background()
	m.Set(ctx, "tenant:t1:customer:c1", "v", time.Minute)
	m.Set(ctx, "tenant:t1:customer:c2", "v", time.Minute)
	m.Set(ctx, "tenant:t2:customer:c1", "v", time.Minute)

	m.DeletePattern(ctx, "tenant:t1:customer:*")

	var got string
	if m.Get(ctx, "tenant:t1:customer:c1", &got) {
		t.Error("expected tenant:t1:customer:c1 to be invalidated")
	}
	if m.Get(ctx, "tenant:t1:customer:c2", &got) {
		t.Error("expected tenant:t1:customer:c2 to be invalidated")
	}
	if !m.Get(ctx, "tenant:t2:customer:c1", &got) {
		t.Error("tenant:t2:customer:c1 should be unaffected")
	}
}

func TestClearAllRemovesEverything(t *testing.T) {
	m := NewManager("", 0)
	ctx := context.Background()
	m.Set(ctx, "a", "v", time.Minute)
	m.Set(ctx, "b", "v", time.Minute)

	m.ClearAll(ctx)

	var got string
	if m.Get(ctx, "a", &got) || m.Get(ctx, "b", &got) {
		t.Error("expected ClearAll to remove every local entry")
	}
}

func TestStatsTrackHitsAndMisses(t *testing.T) {
	m := NewManager("", 0)
	ctx := context.Background()
	var got string
	m.Get(ctx, "missing", &got)
	m.Set(ctx, "present", "v", time.Minute)
	m.Get(ctx, "present", &got)

	hits, misses, _ := m.Stats()
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
}

func TestConnectDisconnectNoopWithoutRedis(t *testing.T) {
	m := NewManager("", 0)
	if err := m.Connect(context.Background()); err != nil {
		t.Errorf("Connect without redis should be a no-op, got %v", err)
	}
	if err := m.Disconnect(); err != nil {
		t.Errorf("Disconnect without redis should be a no-op, got %v", err)
	}
}
