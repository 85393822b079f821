// Package webhook implements one pure verification function per
// ticketing provider, dispatched from a tagged Provider variant rather
// than a plugin registry.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

type Provider string

const (
	Gorgias    Provider = "gorgias"
	Zendesk    Provider = "zendesk"
	Salesforce Provider = "salesforce"
	Helpshift  Provider = "helpshift"
	Intercom   Provider = "intercom"
	Freshdesk  Provider = "freshdesk"
)

// SignatureHeader returns the header name carrying the signature for the
// given provider.
func SignatureHeader(p Provider) string {
	switch p {
	case Gorgias:
		return "X-Gorgias-Signature"
	case Zendesk:
		return "X-Zendesk-Webhook-Signature"
	case Salesforce:
		return "X-Salesforce-Signature"
	case Helpshift:
		return "X-Helpshift-Signature"
	case Intercom:
		return "X-Hub-Signature"
	case Freshdesk:
		return "X-Freshdesk-Signature"
	default:
		return ""
	}
}

// Verify dispatches to the provider-specific verifier. Any of {missing
// secret, missing signature, format mismatch, algorithm mismatch, failed
// comparison} yields false; it never panics.
func Verify(p Provider, body []byte, signature, secret, url string) bool {
	if secret == "" || signature == "" {
		return false
	}
	switch p {
	case Gorgias:
		return verifyHex(body, signature, secret)
	case Zendesk:
		return verifyBase64(body, signature, secret)
	case Salesforce:
		return verifyBase64([]byte(url+string(body)), signature, secret)
	case Helpshift:
		return verifyHex(body, signature, secret)
	case Intercom:
		return verifyHex(body, strings.TrimPrefix(signature, "sha256="), secret)
	case Freshdesk:
		return verifyHex(body, signature, secret)
	default:
		return false
	}
}

func mac(body []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return h.Sum(nil)
}

func verifyHex(body []byte, signature, secret string) bool {
	expected := hex.EncodeToString(mac(body, secret))
	got := strings.ToLower(strings.TrimSpace(signature))
	if len(expected) != len(got) {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(got))
}

func verifyBase64(body []byte, signature, secret string) bool {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	expected := mac(body, secret)
	if len(expected) != len(decoded) {
		return false
	}
	return hmac.Equal(expected, decoded)
}
