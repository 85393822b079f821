// Package middleware implements the tenant router (C4): the
// request-scoped gate that runs the rate limiter, the tenant
// identification ladder, and webhook signature verification before any
// handler runs, then clears the bound tenant context unconditionally.
package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/securizon/internal/crypto"
	"github.com/securizon/internal/obslog"
	"github.com/securizon/internal/ratelimit"
	"github.com/securizon/internal/tenant"
	"github.com/securizon/internal/webhook"
)

var reservedSubdomains = map[string]bool{
	"api": true, "www": true, "staging": true, "production": true, "admin": true,
}

var publicPrefixes = []string{"/health", "/metrics", "/docs", "/openapi.json"}

// webhookIdentifierPaths lists the provider-specific path used to extract a
// tenant identifier from a raw webhook payload, tried in this order.
var webhookIdentifierPaths = []struct {
	key  string
	path []string
}{
	{"account.domain", []string{"account", "domain"}},
	{"account.subdomain", []string{"account", "subdomain"}},
	{"organizationId", []string{"organizationId"}},
	{"app_id", []string{"app_id"}},
	{"data.workspace_id", []string{"data", "workspace_id"}},
	{"domain", []string{"domain"}},
}

type Router struct {
	Tenants  tenant.Store
	Limiter  *ratelimit.Limiter
	Sealer   *crypto.Sealer
}

func isPublicPath(path string) bool {
	for _, p := range publicPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func isWebhookPath(path string) bool {
	return path == "/api/gorgias/webhook" || strings.HasPrefix(path, "/api/webhooks/")
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware returns the http.Handler-wrapping tenant router. It always
// clears the tenant context after the handler completes, including on
// panic.
func (tr *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		allowed, retryAfter := tr.Limiter.Allow(key)
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"rate limit exceeded"}}`))
			return
		}
		limit, remaining := tr.Limiter.Remaining(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		ctx := r.Context()
		var t *tenant.Tenant

		defer func() {
			cleared := tenant.ClearContext(ctx)
			r2 := r.WithContext(cleared)
			if rec := recover(); rec != nil {
				obslog.Errorf(cleared, "panic in handler: %v", rec)
				panic(rec)
			}
			_ = r2
		}()

		t, identified, failHTTP := tr.identify(r)
		if failHTTP != 0 {
			w.WriteHeader(failHTTP)
			_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"webhook verification failed"}}`))
			return
		}

		if identified && t != nil {
			rc := tenant.NewRequestContext(t.ID, t.Slug, t.Environment, r.Header.Get("X-Correlation-ID"))
			ctx = tenant.WithRequestContext(ctx, rc)
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// identify runs the strategy ladder, stopping at the first hit. Returns
// failHTTP != 0 only for a webhook verification failure, which must
// reject immediately.
func (tr *Router) identify(r *http.Request) (t *tenant.Tenant, identified bool, failHTTP int) {
	ctx := r.Context()

	if slug, ok := subdomainSlug(r.Host); ok {
		if found, err := tr.Tenants.GetBySlug(ctx, slug); err == nil {
			return found, true, 0
		}
	}

	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		sum := sha256.Sum256([]byte(apiKey))
		hash := hex.EncodeToString(sum[:])
		if found, err := tr.Tenants.GetByApiKeyHash(ctx, hash); err == nil {
			return found, true, 0
		}
	}

	if isWebhookPath(r.URL.Path) {
		return tr.identifyWebhook(r)
	}

	return nil, false, 0
}

func subdomainSlug(host string) (string, bool) {
	h := host
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	h = strings.ToLower(h)
	if h == "localhost" || net.ParseIP(h) != nil {
		return "", false
	}
	labels := strings.Split(h, ".")
	if len(labels) < 3 {
		return "", false
	}
	first := labels[0]
	if reservedSubdomains[first] {
		return "", false
	}
	return first, true
}

func (tr *Router) identifyWebhook(r *http.Request) (*tenant.Tenant, bool, int) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, false, http.StatusUnauthorized
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false, http.StatusUnauthorized
	}

	var t *tenant.Tenant
	for _, cand := range webhookIdentifierPaths {
		value, ok := lookupPath(payload, cand.path)
		if !ok {
			continue
		}
		found, err := tr.Tenants.FindByWebhookIdentifier(ctx, cand.key, value)
		if err == nil {
			t = found
			break
		}
	}
	if t == nil {
		return nil, false, http.StatusUnauthorized
	}

	sigHeader := providerSignatureHeader(r.URL.Path)
	signature := r.Header.Get(sigHeader)
	if signature == "" {
		return nil, false, http.StatusUnauthorized
	}

	cfg, err := tr.decryptConfig(t)
	if err != nil || cfg.WebhookSecret == "" {
		return nil, false, http.StatusUnauthorized
	}

	prov := providerFromPath(r.URL.Path, t)
	if !webhook.Verify(prov, body, signature, cfg.WebhookSecret, r.URL.String()) {
		return nil, false, http.StatusUnauthorized
	}
	return t, true, 0
}

func (tr *Router) decryptConfig(t *tenant.Tenant) (tenant.CRMConfigData, error) {
	var cfg tenant.CRMConfigData
	plaintext, err := tr.Sealer.Decrypt(t.CRMConfig)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(plaintext, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func providerSignatureHeader(path string) string {
	prov := providerFromPathOnly(path)
	return webhook.SignatureHeader(prov)
}

func providerFromPathOnly(path string) webhook.Provider {
	if path == "/api/gorgias/webhook" {
		return webhook.Gorgias
	}
	parts := strings.Split(strings.TrimPrefix(path, "/api/webhooks/"), "/")
	return webhook.Provider(parts[0])
}

func providerFromPath(path string, t *tenant.Tenant) webhook.Provider {
	if p := providerFromPathOnly(path); p != "" {
		return p
	}
	return webhook.Provider(t.CRMProvider)
}

func lookupPath(m map[string]interface{}, path []string) (string, bool) {
	var cur interface{} = m
	for _, p := range path {
		mm, ok := cur.(map[string]interface{})
		if !ok {
			return "", false
		}
		cur, ok = mm[p]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok && s != ""
}
