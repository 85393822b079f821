package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/securizon/internal/crypto"
	"github.com/securizon/internal/ratelimit"
	"github.com/securizon/internal/tenant"
)

func testSealer(t *testing.T) *crypto.Sealer {
	t.Helper()
	sealer, err := crypto.NewSealer([]byte("01234567890123456789012345678901"))
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return sealer
}

func seedGorgiasTenant(t *testing.T, sealer *crypto.Sealer, store *tenant.MemStore, secret string) {
	t.Helper()
	cfg, _ := json.Marshal(tenant.CRMConfigData{WebhookSecret: secret})
	encrypted, err := sealer.Encrypt(cfg)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	store.Put(&tenant.Tenant{
		ID:                 "tenant-1",
		Slug:               "acme",
		CRMProvider:        tenant.ProviderGorgias,
		CRMConfig:          encrypted,
		WebhookIdentifiers: map[string]string{"account.domain": "acme.myshopify.com"},
		IsActive:           true,
		Environment:        tenant.EnvProduction,
	})
}

func gorgiasSignature(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func newTestRouter(t *testing.T) (*Router, *tenant.MemStore, *crypto.Sealer) {
	t.Helper()
	store := tenant.NewMemStore()
	sealer := testSealer(t)
	limiter := ratelimit.New(1000, 10000)
	return &Router{Tenants: store, Limiter: limiter, Sealer: sealer}, store, sealer
}

func TestMiddlewareAcceptsValidGorgiasSignature(t *testing.T) {
	router, store, sealer := newTestRouter(t)
	seedGorgiasTenant(t, sealer, store, "webhook-secret")

	body := []byte(`{"account":{"domain":"acme.myshopify.com"},"ticket_id":1}`)
	var handlerCalled bool
	handler := router.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/gorgias/webhook", bytes.NewReader(body))
	req.Header.Set("X-Gorgias-Signature", gorgiasSignature(body, "webhook-secret"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Fatal("expected the wrapped handler to run for a valid signature")
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
}

func TestMiddlewareRejectsInvalidGorgiasSignature(t *testing.T) {
	router, store, sealer := newTestRouter(t)
	seedGorgiasTenant(t, sealer, store, "webhook-secret")

	body := []byte(`{"account":{"domain":"acme.myshopify.com"},"ticket_id":1}`)
	var handlerCalled bool
	handler := router.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/gorgias/webhook", bytes.NewReader(body))
	req.Header.Set("X-Gorgias-Signature", "0000000000000000000000000000000000000000000000000000000000000000")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if handlerCalled {
		t.Fatal("the wrapped handler must not run when the signature is invalid")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareRejectsMissingSignature(t *testing.T) {
	router, store, sealer := newTestRouter(t)
	seedGorgiasTenant(t, sealer, store, "webhook-secret")

	body := []byte(`{"account":{"domain":"acme.myshopify.com"},"ticket_id":1}`)
	handler := router.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("the wrapped handler must not run without a signature")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/gorgias/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewareRateLimitsBeforeIdentification(t *testing.T) {
	store := tenant.NewMemStore()
	sealer := testSealer(t)
	limiter := ratelimit.New(1, 100)
	router := &Router{Tenants: store, Limiter: limiter, Sealer: sealer}

	handler := router.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.RemoteAddr = "203.0.113.1:5555"

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, req)
	if rec1.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec1.Code)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec2.Code)
	}
}
