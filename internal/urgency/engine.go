// Package urgency implements the keyword classification and priority
// combination rules (C8). The keyword table is reproduced verbatim from
// the fixed rule table; it is not paraphrased or reorganized.
package urgency

import (
	"strings"

	"github.com/securizon/pkg/models"
)

type categoryRule struct {
	category models.UrgencyCategory
	phrases  []string
}

var urgentRules = []categoryRule{
	{models.CategoryCancelRequest, []string{
		"cancel my order", "cancel order", "need to cancel", "want to cancel", "please cancel",
	}},
	{models.CategoryAddressChange, []string{
		"change address", "edit address", "incorrect address", "wrong address",
		"ship to different address", "address is wrong", "shipped to wrong address",
	}},
	{models.CategoryOrderEdit, []string{
		"edit my order", "edit order", "change my order", "modify my order", "wrong item ordered",
	}},
}

var highRules = []categoryRule{
	{models.CategoryDamagedProduct, []string{"broken", "damaged", "defective", "arrived broken"}},
	{models.CategoryMissingItems, []string{"missing item", "didn't receive", "item not in box"}},
	{models.CategoryDelayedOrder, []string{"hasn't arrived", "delayed", "still waiting"}},
}

// gorgiasTag maps a (level, category) pair to the provider tag to apply
// when that category matched.
func gorgiasTag(level models.UrgencyLevel, category models.UrgencyCategory) string {
	switch level {
	case models.UrgencyUrgent:
		return "urgent_" + string(category)
	case models.UrgencyHigh:
		return "high_priority_" + string(category)
	default:
		return ""
	}
}

// Classify returns the first matching urgent category, else the first
// matching high category, else (normal, general, nil). Matching is
// case-insensitive substring over the concatenated message text.
func Classify(messageText string) models.UrgencyClassification {
	text := strings.ToLower(messageText)

	if level, cat, kws, ok := matchTier(text, urgentRules); ok {
		return models.UrgencyClassification{
			Level: level, Category: cat, MatchedKeywords: kws,
			ProviderTag: gorgiasTag(level, cat),
		}
	}
	if level, cat, kws, ok := matchTier2(text, highRules); ok {
		return models.UrgencyClassification{
			Level: level, Category: cat, MatchedKeywords: kws,
			ProviderTag: gorgiasTag(level, cat),
		}
	}
	return models.UrgencyClassification{
		Level: models.UrgencyNormal, Category: models.CategoryGeneral,
	}
}

func matchTier(text string, rules []categoryRule) (models.UrgencyLevel, models.UrgencyCategory, []string, bool) {
	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			if strings.Contains(text, phrase) {
				return models.UrgencyUrgent, rule.category, []string{phrase}, true
			}
		}
	}
	return "", "", nil, false
}

func matchTier2(text string, rules []categoryRule) (models.UrgencyLevel, models.UrgencyCategory, []string, bool) {
	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			if strings.Contains(text, phrase) {
				return models.UrgencyHigh, rule.category, []string{phrase}, true
			}
		}
	}
	return "", "", nil, false
}

// wellKnownLCCForms are recognized VIP tag spellings in addition to the
// generic case-insensitive "lcc" substring match (spec §9 Open Questions:
// implemented literally, not "fixed" to exclude e.g. "LCCX").
var wellKnownLCCForms = []string{"lcc_member", "lcc member", "crafter club"}

// HasLCCTag reports whether tags contains any well-known VIP spelling or
// a generic case-insensitive "lcc" substring.
func HasLCCTag(tags []string) bool {
	for _, t := range tags {
		lower := strings.ToLower(t)
		if strings.Contains(lower, "lcc") {
			return true
		}
		for _, form := range wellKnownLCCForms {
			if lower == form {
				return true
			}
		}
	}
	return false
}

func dedupeAppend(tags []string, add ...string) []string {
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		seen[t] = true
	}
	for _, a := range add {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		tags = append(tags, a)
	}
	return tags
}

// DecidePriority implements the seven ordered priority combination rules
// (spec §4.8); the first rule whose predicate holds fires.
func DecidePriority(u models.UrgencyClassification, isVIP bool, ltv, churn float64, existingTags []string) models.PriorityDecision {
	tags := append([]string{}, existingTags...)
	urgentTag := "urgent_" + string(u.Category)
	highTag := "high_priority_" + string(u.Category)

	switch {
	case u.Level == models.UrgencyUrgent && isVIP:
		tags = dedupeAppend(tags, "lcc_member", "vip", urgentTag)
		return models.PriorityDecision{Priority: models.PriorityUrgent, Reason: "urgent request from VIP customer", Tags: tags}

	case u.Level == models.UrgencyUrgent && ltv >= 2000:
		tags = dedupeAppend(tags, "high_value", urgentTag)
		return models.PriorityDecision{Priority: models.PriorityUrgent, Reason: "urgent request from high-value customer", Tags: tags}

	case u.Level == models.UrgencyUrgent:
		tags = dedupeAppend(tags, urgentTag)
		return models.PriorityDecision{Priority: models.PriorityUrgent, Reason: "urgent request", Tags: tags}

	case isVIP:
		tags = dedupeAppend(tags, "lcc_member", "vip")
		return models.PriorityDecision{Priority: models.PriorityHigh, Reason: "VIP customer", Tags: tags}

	case u.Level == models.UrgencyHigh:
		tags = dedupeAppend(tags, highTag)
		return models.PriorityDecision{Priority: models.PriorityHigh, Reason: "high-urgency request", Tags: tags}

	case ltv >= 2000 && churn >= 0.5:
		tags = dedupeAppend(tags, "high_value", "retention_priority")
		return models.PriorityDecision{Priority: models.PriorityHigh, Reason: "high-value customer at elevated churn risk", Tags: tags}

	default:
		return models.PriorityDecision{Priority: models.PriorityNormal, Reason: "no priority signal matched", Tags: tags}
	}
}
