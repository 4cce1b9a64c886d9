// File: internal/domain/errors_test.go
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{NewValidation("code", "code is required"), http.StatusBadRequest},
		{NewInvalidPackage("NOPE"), http.StatusBadRequest},
		{NewWebhookVerification("vnpay"), http.StatusBadRequest},
		{NewRefundError("pay-1", "not refundable"), http.StatusBadRequest},
		{NewDuplicatePayment("vnpay", "14226112"), http.StatusConflict},
		{NewQuotaExceeded("job_posts", 5, 5), http.StatusForbidden},
		{NewSubscriptionNotFound("user-1"), http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{NewSubscriptionExpired("sub-1", "expired"), http.StatusPaymentRequired},
		{NewGatewayError("stripe", errors.New("timeout")), http.StatusBadGateway},
		{NewProcessing("", "db down", nil), http.StatusInternalServerError},
		{errors.New("anonymous"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.status {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}

func TestHTTPStatusSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handling webhook: %w", NewDuplicatePayment("stripe", "pi_1"))
	if got := HTTPStatus(err); got != http.StatusConflict {
		t.Fatalf("HTTPStatus = %d, want 409", got)
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := NewDuplicatePayment("vnpay", "14226112")
	if !errors.Is(err, ErrDuplicatePayment) {
		t.Fatal("constructed error does not match its prototype")
	}
	if errors.Is(err, ErrQuotaExceeded) {
		t.Fatal("kinds must not cross-match")
	}
	// ErrAlreadyExists shares the duplicate kind so repo conflicts surface
	// the same way.
	if !errors.Is(ErrAlreadyExists, ErrDuplicatePayment) {
		t.Fatal("ErrAlreadyExists should carry the duplicate kind")
	}
}

func TestErrorCarriesCauseAndDetails(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewGatewayError("stripe", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if err.Details["gateway"] != "stripe" {
		t.Fatalf("details = %v", err.Details)
	}
}
