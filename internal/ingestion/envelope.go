// Package ingestion implements C9: the pipeline invoked after C4 has
// established tenant context, turning a raw provider webhook payload
// into ticket enrichment and provider write-backs.
package ingestion

import (
	"strings"

	"github.com/securizon/internal/customer"
)

// RawMessage is a single conversation entry as seen in the provider
// payload, before any normalization.
type RawMessage struct {
	Content        string
	FromAgent      bool
	Via            string
	Channel        string
	CreatedByAgent bool
	Author         string
}

// RawTicket is the ticket-shaped portion of a provider payload.
type RawTicket struct {
	ID      string
	Number  string
	Status  string
	Channel string
	Subject string
	Tags    []string
	Via     string
}

// Envelope is the canonical shape every provider payload is folded into
// (spec §4.9 step 1): ticket, customer, and messages with the trailing
// entry being the newest.
type Envelope struct {
	Ticket   RawTicket
	Customer customer.RawCustomer
	Messages []RawMessage
	Source   string // populated later by detectSource
}

// LatestMessage returns the newest message, or the zero value if there
// are none.
func (e *Envelope) LatestMessage() (RawMessage, bool) {
	if len(e.Messages) == 0 {
		return RawMessage{}, false
	}
	return e.Messages[len(e.Messages)-1], true
}

// Normalize folds the two provider payload shapes — a whole ticket, or
// a {ticket, message} pair — into one Envelope. Both shapes are
// represented here as already-decoded maps; callers own JSON decoding.
func Normalize(payload map[string]interface{}) *Envelope {
	env := &Envelope{}

	ticketRaw, _ := payload["ticket"].(map[string]interface{})
	if ticketRaw == nil {
		// whole-ticket shape: the payload itself is the ticket.
		ticketRaw = payload
	}
	env.Ticket = RawTicket{
		ID:      str(ticketRaw["id"]),
		Number:  str(ticketRaw["ticket_number"]),
		Status:  str(ticketRaw["status"]),
		Channel: str(ticketRaw["channel"]),
		Subject: str(ticketRaw["subject"]),
		Tags:    strSlice(ticketRaw["tags"]),
		Via:     str(ticketRaw["via"]),
	}

	custRaw, _ := payload["customer"].(map[string]interface{})
	if custRaw == nil {
		custRaw, _ = ticketRaw["customer"].(map[string]interface{})
	}
	if custRaw != nil {
		env.Customer = customer.RawCustomer{
			ExternalID:         str(custRaw["external_id"]),
			ShopifyCustomerID:  str(custRaw["shopify_customer_id"]),
			IntegrationID:      str(custRaw["integration_id"]),
			ProviderCustomerID: str(custRaw["id"]),
			Phone:              str(custRaw["phone"]),
			Email:              str(custRaw["email"]),
		}
	}

	for _, raw := range messagesFrom(payload, ticketRaw) {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		env.Messages = append(env.Messages, RawMessage{
			Content:        str(m["content"]),
			FromAgent:      boolVal(m["from_agent"]),
			Via:            str(m["via"]),
			Channel:        str(m["channel"]),
			CreatedByAgent: boolVal(m["created_by_agent"]),
			Author:         str(m["author"]),
		})
	}

	// {ticket, message} pair shape: single "message" key at top level.
	if msgRaw, ok := payload["message"].(map[string]interface{}); ok {
		env.Messages = append(env.Messages, RawMessage{
			Content:        str(msgRaw["content"]),
			FromAgent:      boolVal(msgRaw["from_agent"]),
			Via:            str(msgRaw["via"]),
			Channel:        str(msgRaw["channel"]),
			CreatedByAgent: boolVal(msgRaw["created_by_agent"]),
			Author:         str(msgRaw["author"]),
		})
	}

	return env
}

func messagesFrom(payload, ticketRaw map[string]interface{}) []interface{} {
	if m, ok := payload["messages"].([]interface{}); ok {
		return m
	}
	if m, ok := ticketRaw["messages"].([]interface{}); ok {
		return m
	}
	return nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func boolVal(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func strSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// IsOwnMessage reports the step-1 loop-prevention check: the trailing
// message is a note we previously posted, or is agent-authored.
func (e *Envelope) IsOwnMessage() bool {
	m, ok := e.LatestMessage()
	if !ok {
		return false
	}
	if m.Via == "api" && m.Channel == "internal-note" {
		return true
	}
	return m.FromAgent
}

var marketingDomains = map[string]bool{
	"klaviyo.com":         true,
	"mailchimp.com":       true,
	"sendgrid.net":        true,
	"constantcontact.com": true,
	"activecampaign.com":  true,
}

func emailHost(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return ""
	}
	return strings.ToLower(email[i+1:])
}
