package tenant

import (
	"context"
	"time"
)

type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

type CRMProvider string

const (
	ProviderGorgias    CRMProvider = "gorgias"
	ProviderZendesk    CRMProvider = "zendesk"
	ProviderSalesforce CRMProvider = "salesforce"
	ProviderHelpshift  CRMProvider = "helpshift"
	ProviderIntercom   CRMProvider = "intercom"
	ProviderFreshdesk  CRMProvider = "freshdesk"
)

// Tenant is unique by Slug and by APIKeyHash. CRMConfig holds the opaque
// ciphertext of provider credentials (including webhook_secret); it is
// decrypted only on demand and never logged.
type Tenant struct {
	ID                 string                 `json:"id"`
	Slug               string                 `json:"slug"`
	Name               string                 `json:"name"`
	StoreID            string                 `json:"store_id,omitempty"`
	APIKeyHash         string                 `json:"-"`
	CRMProvider        CRMProvider            `json:"crm_provider"`
	CRMConfig          []byte                 `json:"-"`
	WebhookIdentifiers map[string]string      `json:"webhook_identifiers"`
	Features           map[string]bool        `json:"features"`
	Settings           map[string]interface{} `json:"settings"`
	IsActive           bool                   `json:"is_active"`
	Environment        Environment            `json:"environment"`
	Subscription       SubscriptionInfo       `json:"subscription"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

type SubscriptionInfo struct {
	Plan   string `json:"plan"`
	Status string `json:"status"` // active, past_due, unpaid
}

// CRMConfigData is the decrypted form of Tenant.CRMConfig.
type CRMConfigData struct {
	WebhookSecret string            `json:"webhook_secret"`
	APIToken      string            `json:"api_token,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

type contextKey int

const tenantContextKey contextKey = iota

// RequestContext is the request-scoped tenant binding attached by the
// router middleware and read by handlers. It MUST NOT leak between
// requests and MUST be cleared in a deferred step after the handler runs.
type RequestContext struct {
	TenantID    string
	Slug        string
	Environment Environment
	RequestID   string
}

func NewRequestContext(tenantID, slug string, env Environment, requestID string) *RequestContext {
	return &RequestContext{TenantID: tenantID, Slug: slug, Environment: env, RequestID: requestID}
}

// WithRequestContext binds a tenant context value into ctx.
func WithRequestContext(ctx context.Context, tc *RequestContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// FromContext returns the bound tenant context, or nil if the request is
// operating in anonymous/single-tenant mode.
func FromContext(ctx context.Context) *RequestContext {
	tc, _ := ctx.Value(tenantContextKey).(*RequestContext)
	return tc
}

// ClearContext returns a context with no tenant binding, for use in the
// deferred cleanup step so stale tenant state cannot leak to reused
// goroutines/pools.
func ClearContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantContextKey, (*RequestContext)(nil))
}
