package tenant

import (
	"context"
	"testing"
)

func seededStore() *MemStore {
	store := NewMemStore()
	store.Put(&Tenant{
		ID:                 "t1",
		Slug:               "acme",
		APIKeyHash:         "hash1",
		CRMProvider:        ProviderGorgias,
		WebhookIdentifiers: map[string]string{"account.domain": "acme.myshopify.com"},
		IsActive:           true,
		Environment:        EnvProduction,
	})
	store.Put(&Tenant{
		ID:          "t2",
		Slug:        "beta",
		IsActive:    false,
		Environment: EnvProduction,
	})
	store.Put(&Tenant{
		ID:          "t3",
		Slug:        "gamma",
		IsActive:    true,
		Environment: EnvStaging,
	})
	return store
}

func TestGetBySlug(t *testing.T) {
	store := seededStore()
	got, err := store.GetBySlug(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if got.ID != "t1" {
		t.Errorf("ID = %q, want t1", got.ID)
	}

	if _, err := store.GetBySlug(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("GetBySlug(nope) = %v, want ErrNotFound", err)
	}
}

func TestGetByApiKeyHash(t *testing.T) {
	store := seededStore()
	got, err := store.GetByApiKeyHash(context.Background(), "hash1")
	if err != nil {
		t.Fatalf("GetByApiKeyHash: %v", err)
	}
	if got.ID != "t1" {
		t.Errorf("ID = %q, want t1", got.ID)
	}
}

func TestFindByWebhookIdentifier(t *testing.T) {
	store := seededStore()
	got, err := store.FindByWebhookIdentifier(context.Background(), "account.domain", "acme.myshopify.com")
	if err != nil {
		t.Fatalf("FindByWebhookIdentifier: %v", err)
	}
	if got.ID != "t1" {
		t.Errorf("ID = %q, want t1", got.ID)
	}

	if _, err := store.FindByWebhookIdentifier(context.Background(), "account.domain", "nope"); err != ErrNotFound {
		t.Errorf("FindByWebhookIdentifier(miss) = %v, want ErrNotFound", err)
	}
}

func TestListActiveFiltersByStatusAndEnvironment(t *testing.T) {
	store := seededStore()

	active, err := store.ListActive(context.Background(), EnvProduction)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].ID != "t1" {
		t.Errorf("ListActive(production) = %v, want only t1", active)
	}

	anyEnv, err := store.ListActive(context.Background(), "")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(anyEnv) != 2 {
		t.Errorf("ListActive(\"\") returned %d tenants, want 2", len(anyEnv))
	}
}

func TestUpdateTenantRequiresExistingID(t *testing.T) {
	store := seededStore()

	t1, _ := store.GetTenant(context.Background(), "t1")
	t1.Name = "Acme Corp"
	if err := store.UpdateTenant(context.Background(), t1); err != nil {
		t.Fatalf("UpdateTenant: %v", err)
	}

	got, _ := store.GetTenant(context.Background(), "t1")
	if got.Name != "Acme Corp" {
		t.Errorf("Name = %q, want Acme Corp", got.Name)
	}

	if err := store.UpdateTenant(context.Background(), &Tenant{ID: "unknown"}); err != ErrNotFound {
		t.Errorf("UpdateTenant(unknown) = %v, want ErrNotFound", err)
	}
}

func TestRequestContextRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	if got := FromContext(ctx); got != nil {
		t.Fatalf("FromContext(empty) = %v, want nil", got)
	}

	rc := NewRequestContext("t1", "acme", EnvProduction, "req-1")
	ctx = WithRequestContext(ctx, rc)

	got := FromContext(ctx)
	if got == nil || got.TenantID != "t1" {
		t.Fatalf("FromContext() = %v, want bound tenant t1", got)
	}

	cleared := ClearContext(ctx)
	if got := FromContext(cleared); got != nil {
		t.Errorf("FromContext(cleared) = %v, want nil", got)
	}
}
