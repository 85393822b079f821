package ingestion

import (
	"testing"

	"github.com/securizon/internal/customer"
)

func baseEnvelope() *Envelope {
	return &Envelope{
		Ticket:   RawTicket{Status: "open", Subject: "Where is my order", Via: "email"},
		Customer: customer.RawCustomer{Email: "shopper@example.com"},
		Messages: []RawMessage{{Content: "Where is my order?", FromAgent: false}},
	}
}

func TestShouldProcessOwnMessageLoopPrevention(t *testing.T) {
	env := baseEnvelope()
	env.Messages = append(env.Messages, RawMessage{Content: "noted internally", Via: "api", Channel: "internal-note"})

	ok, reason := ShouldProcess(env, SourceEmail)
	if ok {
		t.Fatal("a trailing own-authored internal note must not be reprocessed")
	}
	if reason != SkipOwnMessage {
		t.Errorf("reason = %q, want %q", reason, SkipOwnMessage)
	}
}

func TestShouldProcessAgentAuthoredMessageIsOwnMessage(t *testing.T) {
	env := baseEnvelope()
	env.Messages = append(env.Messages, RawMessage{Content: "on it", FromAgent: true})

	ok, reason := ShouldProcess(env, SourceEmail)
	if ok || reason != SkipOwnMessage {
		t.Fatalf("ok=%v reason=%q, want (false, %q)", ok, reason, SkipOwnMessage)
	}
}

func TestShouldProcessManualForceOverridesEverything(t *testing.T) {
	env := baseEnvelope()
	env.Ticket.Status = "closed"
	env.Ticket.Tags = []string{"ai_force"}

	ok, reason := ShouldProcess(env, SourceEmail)
	if !ok || reason != SkipNone {
		t.Fatalf("ok=%v reason=%q, want (true, none) — force tag should dominate", ok, reason)
	}
}

func TestShouldProcessManualIgnore(t *testing.T) {
	env := baseEnvelope()
	env.Ticket.Tags = []string{"no-ai"}

	ok, reason := ShouldProcess(env, SourceEmail)
	if ok || reason != SkipManualOverride {
		t.Fatalf("ok=%v reason=%q, want (false, %q)", ok, reason, SkipManualOverride)
	}
}

func TestShouldProcessClosedStatus(t *testing.T) {
	env := baseEnvelope()
	env.Ticket.Status = "spam"

	ok, reason := ShouldProcess(env, SourceEmail)
	if ok || reason != SkipClosedStatus {
		t.Fatalf("ok=%v reason=%q, want (false, %q)", ok, reason, SkipClosedStatus)
	}
}

func TestShouldProcessNoReplyEmailSkipped(t *testing.T) {
	env := baseEnvelope()
	env.Customer.Email = "no-reply@shop.com"

	ok, reason := ShouldProcess(env, SourceEmail)
	if ok || reason != SkipNoReplyEmail {
		t.Fatalf("ok=%v reason=%q, want (false, %q)", ok, reason, SkipNoReplyEmail)
	}
}

func TestShouldProcessNoReplyPermittedViaRingCentralWithPhone(t *testing.T) {
	env := baseEnvelope()
	env.Customer.Email = "no-reply@shop.com"
	env.Customer.Phone = "+15551234567"
	env.Ticket.Via = "ringcentral"

	ok, _ := ShouldProcess(env, SourceRingCentral)
	if !ok {
		t.Fatal("a no-reply sender with a phone on a ringcentral thread should still be processed")
	}
}

func TestShouldProcessMarketingDomainSkipped(t *testing.T) {
	env := baseEnvelope()
	env.Customer.Email = "campaign@klaviyo.com"

	ok, reason := ShouldProcess(env, SourceEmail)
	if ok || reason != SkipMarketingDomain {
		t.Fatalf("ok=%v reason=%q, want (false, %q)", ok, reason, SkipMarketingDomain)
	}
}

func TestShouldProcessEmptyBodySkipped(t *testing.T) {
	env := baseEnvelope()
	env.Messages[0].Content = "   "

	ok, reason := ShouldProcess(env, SourceEmail)
	if ok || reason != SkipEmptyBody {
		t.Fatalf("ok=%v reason=%q, want (false, %q)", ok, reason, SkipEmptyBody)
	}
}

func TestShouldProcessPureAPIAutomationSkipped(t *testing.T) {
	env := baseEnvelope()
	env.Ticket.Via = "api"
	env.Messages = []RawMessage{{Content: "auto note", CreatedByAgent: false}}

	ok, reason := ShouldProcess(env, SourceAPI)
	if ok || reason != SkipPureAPIAutomation {
		t.Fatalf("ok=%v reason=%q, want (false, %q)", ok, reason, SkipPureAPIAutomation)
	}
}

func TestDetectSource(t *testing.T) {
	tests := []struct {
		name string
		env  *Envelope
		want Source
	}{
		{"ringcentral via", &Envelope{Ticket: RawTicket{Via: "ringcentral"}}, SourceRingCentral},
		{"sms channel", &Envelope{Ticket: RawTicket{Channel: "sms"}}, SourceSMS},
		{"chat channel", &Envelope{Ticket: RawTicket{Channel: "chat"}}, SourceChat},
		{"phone via", &Envelope{Ticket: RawTicket{Via: "phone"}}, SourcePhone},
		{"api via", &Envelope{Ticket: RawTicket{Via: "api"}}, SourceAPI},
		{"email channel", &Envelope{Ticket: RawTicket{Channel: "email"}}, SourceEmail},
		{"email from customer address", &Envelope{Customer: customer.RawCustomer{Email: "a@b.com"}}, SourceEmail},
		{"unknown", &Envelope{}, SourceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSource(tt.env); got != tt.want {
				t.Errorf("DetectSource() = %s, want %s", got, tt.want)
			}
		})
	}
}
