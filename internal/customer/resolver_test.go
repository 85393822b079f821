package customer

import (
	"context"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"5551234567", "+15551234567"},
		{"15551234567", "+15551234567"},
		{"+15551234567", "+15551234567"},
		{"(555) 123-4567", "+15551234567"},
		{"+44 20 7946 0958", "+442079460958"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveLadderPrefersExternalID(t *testing.T) {
	raw := RawCustomer{ExternalID: "ext1", ShopifyCustomerID: "shop1", Email: "a@example.com"}
	id, err := Resolve(context.Background(), raw, nil)
	if err != nil || id != "ext1" {
		t.Fatalf("Resolve = (%q, %v), want (ext1, nil)", id, err)
	}
}

func TestResolveFallsBackThroughLadder(t *testing.T) {
	raw := RawCustomer{ProviderCustomerID: "prov1", Email: "a@example.com"}
	id, err := Resolve(context.Background(), raw, nil)
	if err != nil || id != "prov1" {
		t.Fatalf("Resolve = (%q, %v), want (prov1, nil)", id, err)
	}
}

func TestResolvePhoneLookup(t *testing.T) {
	lookup := NewMemIdentityLookup()
	lookup.Put("+15551234567", "cust-42")

	raw := RawCustomer{Phone: "555-123-4567"}
	id, err := Resolve(context.Background(), raw, lookup)
	if err != nil || id != "cust-42" {
		t.Fatalf("Resolve = (%q, %v), want (cust-42, nil)", id, err)
	}
}

func TestResolveEmailLastResort(t *testing.T) {
	raw := RawCustomer{Email: "a@example.com"}
	id, err := Resolve(context.Background(), raw, NewMemIdentityLookup())
	if err != nil || id != "a@example.com" {
		t.Fatalf("Resolve = (%q, %v), want (a@example.com, nil)", id, err)
	}
}

func TestResolveUnidentified(t *testing.T) {
	_, err := Resolve(context.Background(), RawCustomer{}, nil)
	if err != ErrUnidentified {
		t.Fatalf("Resolve = %v, want ErrUnidentified", err)
	}
}
