// Package customer implements the customer identifier resolution ladder
// (C7): webhook-embedded ids first, then phone lookup, then email as a
// last resort.
package customer

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

var ErrUnidentified = errors.New("customer unidentified")

// IdentityLookup is the external identity service contract used for the
// phone-number fallback.
type IdentityLookup interface {
	LookupByPhone(ctx context.Context, e164 string) (customerID string, ok bool, err error)
}

// RawCustomer is the customer object embedded in a provider webhook.
type RawCustomer struct {
	ExternalID        string
	ShopifyCustomerID string
	IntegrationID     string
	ProviderCustomerID string
	Phone             string
	Email             string
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizePhone implements spec §4.7's E.164 normalization: strip
// non-digits (keep a leading '+'), 10 digits -> prepend +1, 11 digits
// starting with 1 -> prepend +, else prefix +.
func NormalizePhone(raw string) string {
	hasPlus := strings.HasPrefix(strings.TrimSpace(raw), "+")
	digits := nonDigits.ReplaceAllString(raw, "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	case hasPlus:
		return "+" + digits
	default:
		return "+" + digits
	}
}

// Resolve runs the extraction ladder from spec §4.7.
func Resolve(ctx context.Context, raw RawCustomer, lookup IdentityLookup) (string, error) {
	if raw.ExternalID != "" {
		return raw.ExternalID, nil
	}
	if raw.ShopifyCustomerID != "" {
		return raw.ShopifyCustomerID, nil
	}
	if raw.IntegrationID != "" {
		return raw.IntegrationID, nil
	}
	if raw.ProviderCustomerID != "" {
		return raw.ProviderCustomerID, nil
	}
	if raw.Phone != "" && lookup != nil {
		e164 := NormalizePhone(raw.Phone)
		if id, ok, err := lookup.LookupByPhone(ctx, e164); err == nil && ok {
			return id, nil
		}
	}
	if raw.Email != "" {
		return raw.Email, nil
	}
	return "", ErrUnidentified
}
