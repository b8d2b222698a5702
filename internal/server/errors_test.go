package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/fieldops/claimflow/internal/authorization"
	claimdomain "github.com/fieldops/claimflow/internal/claim/domain"
	employeedomain "github.com/fieldops/claimflow/internal/employee/domain"
	travellimitdomain "github.com/fieldops/claimflow/internal/travellimit/domain"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusInternalServerError},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"authz forbidden", authorization.ErrForbidden, http.StatusForbidden},
		{"unauthorized approver", claimdomain.ErrNotAuthorized, http.StatusForbidden},
		{"stale claim", claimdomain.ErrStaleState, http.StatusConflict},
		{"duplicate employee", employeedomain.ErrAlreadyExists, http.StatusConflict},
		{"claim not found", claimdomain.ErrNotFound, http.StatusNotFound},
		{"employee not found", employeedomain.ErrNotFound, http.StatusNotFound},
		{"ledger not found", travellimitdomain.ErrNotFound, http.StatusNotFound},
		{"invalid type", claimdomain.ErrInvalidType, http.StatusBadRequest},
		{"missing reason", claimdomain.ErrMissingReason, http.StatusBadRequest},
		{"invalid month", travellimitdomain.ErrInvalidMonth, http.StatusBadRequest},
		{"rate limited", ErrTooManyRequests, http.StatusTooManyRequests},
		{"unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		if status != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, status)
		}
	}
}

func TestMapErrorValidationPayload(t *testing.T) {
	status, payload := mapError(claimdomain.ErrMissingReason)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if payload.Type != "validation_error" || len(payload.Errors) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Errors[0].Field != "rejection_reason" {
		t.Fatalf("expected field rejection_reason, got %q", payload.Errors[0].Field)
	}
}

func TestMapErrorWrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), claimdomain.ErrStaleState)
	status, _ := mapError(wrapped)
	if status != http.StatusConflict {
		t.Fatalf("wrapped stale state should map to 409, got %d", status)
	}
}
