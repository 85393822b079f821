package ingestion

import "strings"

// Source classifies the originating channel for the automation filters
// and the draft-generation context (spec §4.9 step 3).
type Source string

const (
	SourceRingCentral Source = "ringcentral"
	SourceSMS         Source = "sms"
	SourceEmail       Source = "email"
	SourceChat        Source = "chat"
	SourcePhone       Source = "phone"
	SourceAPI         Source = "api"
	SourceUnknown     Source = "unknown"
)

var smsSubjectPattern = []string{"new sms to", "sms notification"}

// DetectSource classifies the envelope's origin from via/channel/subject/
// customer email.
func DetectSource(e *Envelope) Source {
	via := strings.ToLower(e.Ticket.Via)
	channel := strings.ToLower(e.Ticket.Channel)
	subject := strings.ToLower(e.Ticket.Subject)

	switch {
	case via == "ringcentral" || channel == "ringcentral":
		return SourceRingCentral
	case channel == "sms" || strings.Contains(subject, "sms"):
		return SourceSMS
	case channel == "chat":
		return SourceChat
	case channel == "phone" || via == "phone":
		return SourcePhone
	case via == "api":
		return SourceAPI
	case channel == "email" || strings.Contains(e.Customer.Email, "@"):
		return SourceEmail
	default:
		return SourceUnknown
	}
}

var manualIgnoreTags = []string{"ai_ignore", "no-ai", "human-only"}
var manualForceTags = []string{"ai_force", "force-ai"}
var skipStatuses = map[string]bool{"closed": true, "spam": true, "deleted": true}

func hasAnyTag(tags []string, want []string) bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[strings.ToLower(t)] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

// SkipReason names why an envelope was dropped before enrichment.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipOwnMessage       SkipReason = "own_message"
	SkipManualOverride   SkipReason = "manual_override_ignore"
	SkipClosedStatus     SkipReason = "closed_status"
	SkipNoReplyEmail     SkipReason = "no_reply_email"
	SkipMarketingDomain  SkipReason = "marketing_automation_domain"
	SkipSMSNotification  SkipReason = "sms_notification_subject"
	SkipEmptyBody        SkipReason = "empty_body"
	SkipPureAPIAutomation SkipReason = "pure_api_automation"
)

// ShouldProcess runs the ordered automation/loop filters from spec §4.9
// steps 1-2. Manual-override tags dominate every other rule.
func ShouldProcess(e *Envelope, source Source) (bool, SkipReason) {
	if e.IsOwnMessage() {
		return false, SkipOwnMessage
	}

	if hasAnyTag(e.Ticket.Tags, manualForceTags) {
		return true, SkipNone
	}

	if hasAnyTag(e.Ticket.Tags, manualIgnoreTags) {
		return false, SkipManualOverride
	}

	if skipStatuses[strings.ToLower(e.Ticket.Status)] {
		return false, SkipClosedStatus
	}

	email := strings.ToLower(e.Customer.Email)
	isNoReply := strings.Contains(email, "no-reply") || strings.Contains(email, "noreply")
	ringCentralWithPhone := source == SourceRingCentral && e.Customer.Phone != ""
	if isNoReply && !ringCentralWithPhone {
		return false, SkipNoReplyEmail
	}

	if source != SourceSMS {
		if marketingDomains[emailHost(e.Customer.Email)] {
			return false, SkipMarketingDomain
		}
	}

	subject := strings.ToLower(e.Ticket.Subject)
	for _, pat := range smsSubjectPattern {
		if strings.Contains(subject, pat) {
			return false, SkipSMSNotification
		}
	}

	if latest, ok := e.LatestMessage(); ok {
		bodyEmpty := strings.TrimSpace(latest.Content) == ""
		permitFollowUp := source == SourceRingCentral && e.Customer.Phone != ""
		if bodyEmpty && !permitFollowUp {
			return false, SkipEmptyBody
		}
	}

	if strings.ToLower(e.Ticket.Via) == "api" {
		anyAgentCreated := false
		for _, m := range e.Messages {
			if m.CreatedByAgent {
				anyAgentCreated = true
				break
			}
		}
		if !anyAgentCreated {
			return false, SkipPureAPIAutomation
		}
	}

	return true, SkipNone
}
