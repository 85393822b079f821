package apierr

import (
	"errors"
	"testing"
)

func TestConstructorsSetHTTPCodeAndCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantHTTP int
		wantCode Code
	}{
		{"NotFound", NotFound(TicketNotFound, "missing"), 404, TicketNotFound},
		{"Validation", Validation("bad input"), 400, ValidationError},
		{"Unauth", Unauth("no token"), 401, Unauthorized},
		{"Forbid", Forbid("nope"), 403, Forbidden},
		{"RateLimit", RateLimit("slow down"), 429, RateLimited},
		{"Upstream", Upstream("llm down"), 502, UpstreamFailure},
		{"ConflictErr", ConflictErr("dup"), 409, Conflict},
		{"InternalErr", InternalErr("boom"), 500, Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPCode != tt.wantHTTP {
				t.Errorf("HTTPCode = %d, want %d", tt.err.HTTPCode, tt.wantHTTP)
			}
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestAsPassesThroughAPIError(t *testing.T) {
	original := Validation("bad field")
	got := As(original)
	if got != original {
		t.Error("As should return the same *Error instance unchanged")
	}
}

func TestAsWrapsOpaqueError(t *testing.T) {
	got := As(errors.New("some internal failure"))
	if got.Code != Internal || got.HTTPCode != 500 {
		t.Errorf("As(opaque) = %+v, want Internal/500", got)
	}
	if got.Message != "some internal failure" {
		t.Errorf("Message = %q, want to preserve original error text", got.Message)
	}
}

func TestAsNil(t *testing.T) {
	if As(nil) != nil {
		t.Error("As(nil) should return nil")
	}
}

func TestErrorStringIncludesCode(t *testing.T) {
	e := NotFound(CustomerNotFound, "no such customer")
	if e.Error() != "CUSTOMER_NOT_FOUND: no such customer" {
		t.Errorf("Error() = %q", e.Error())
	}
}
