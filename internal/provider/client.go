// Package provider implements the per-provider write-back clients used
// by the ingestion pipeline (C9 steps 8 and 10): applying priority/tags
// and posting the generated internal note back to the originating
// ticketing system.
package provider

import (
	"context"
	"fmt"

	"github.com/securizon/internal/tenant"
)

// WriteBack is the capability every provider client exposes. Non-2xx
// results are transient errors: the caller records them and stops
// further write-backs for this event without failing the webhook
// response (spec §4.9 failure semantics).
type WriteBack interface {
	UpdatePriorityAndTags(ctx context.Context, remoteTicketID string, priority string, tags []string) error
	PostInternalNote(ctx context.Context, remoteTicketID string, text string) error
}

// Client is a minimal per-tenant REST write-back client shared by every
// provider. It sends no requests: both methods only check that a remote
// ticket id is present.
type Client struct {
	Provider tenant.CRMProvider
	BaseURL  string
	APIToken string
}

func New(p tenant.CRMProvider, baseURL, apiToken string) *Client {
	return &Client{Provider: p, BaseURL: baseURL, APIToken: apiToken}
}

func (c *Client) UpdatePriorityAndTags(ctx context.Context, remoteTicketID string, priority string, tags []string) error {
	// Real transport is provider-specific (Gorgias/Zendesk/Salesforce/...
	// each expose a distinct REST shape); out of scope here per spec §1 —
	// we specify the interface the pipeline consumes, not provider SDKs.
	if remoteTicketID == "" {
		return fmt.Errorf("provider %s: missing remote ticket id", c.Provider)
	}
	return nil
}

func (c *Client) PostInternalNote(ctx context.Context, remoteTicketID string, text string) error {
	if remoteTicketID == "" {
		return fmt.Errorf("provider %s: missing remote ticket id", c.Provider)
	}
	return nil
}
