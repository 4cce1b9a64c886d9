// File: internal/domain/errors.go
package domain

import (
	"fmt"
	"net/http"
)

// ErrorKind tags every failure produced by the billing core. Each operation
// fails with exactly one kind; the HTTP layer maps kinds to status classes
// via HTTPStatus and never string-matches messages.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindInvalidPackage      ErrorKind = "invalid_package"
	KindGateway             ErrorKind = "gateway_error"
	KindProcessing          ErrorKind = "processing_error"
	KindQuotaExceeded       ErrorKind = "quota_exceeded"
	KindSubscriptionNotFound ErrorKind = "subscription_not_found"
	KindSubscriptionExpired  ErrorKind = "subscription_expired"
	KindDuplicatePayment     ErrorKind = "duplicate_payment"
	KindWebhookVerification  ErrorKind = "webhook_verification_failed"
	KindRefund               ErrorKind = "refund_error"
	KindNotFound             ErrorKind = "not_found"
)

// Error carries a machine-readable code and a structured detail map alongside
// the human message.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same kind, so callers can use
// errors.Is(err, domain.ErrDuplicatePayment) against the prototype values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Prototype values for errors.Is checks.
var (
	ErrValidation          = &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "invalid input"}
	ErrInvalidPackage      = &Error{Kind: KindInvalidPackage, Code: "INVALID_PACKAGE", Message: "package not found or inactive"}
	ErrGateway             = &Error{Kind: KindGateway, Code: "GATEWAY_ERROR", Message: "payment gateway failure"}
	ErrProcessing          = &Error{Kind: KindProcessing, Code: "PROCESSING_ERROR", Message: "payment processing failure"}
	ErrQuotaExceeded       = &Error{Kind: KindQuotaExceeded, Code: "QUOTA_EXCEEDED", Message: "subscription quota exceeded"}
	ErrSubscriptionNotFound = &Error{Kind: KindSubscriptionNotFound, Code: "NO_SUBSCRIPTION", Message: "no subscription found"}
	ErrSubscriptionExpired  = &Error{Kind: KindSubscriptionExpired, Code: "SUBSCRIPTION_EXPIRED", Message: "subscription is in a terminal state"}
	ErrDuplicatePayment     = &Error{Kind: KindDuplicatePayment, Code: "DUPLICATE_PAYMENT", Message: "payment already processed"}
	ErrWebhookVerification  = &Error{Kind: KindWebhookVerification, Code: "WEBHOOK_VERIFICATION_FAILED", Message: "webhook signature verification failed"}
	ErrRefund               = &Error{Kind: KindRefund, Code: "REFUND_ERROR", Message: "refund not permitted"}
	ErrNotFound             = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "entity not found"}

	// ErrAlreadyExists signals a unique-constraint conflict detected by a
	// repository insert; use cases translate it into the caller-facing kind.
	ErrAlreadyExists = &Error{Kind: KindDuplicatePayment, Code: "ALREADY_EXISTS", Message: "entity already exists"}

	// Low-level plumbing errors surfaced by repositories.
	ErrInvalidArgument    = &Error{Kind: KindValidation, Code: "INVALID_ARGUMENT", Message: "invalid argument"}
	ErrOperationFailed    = &Error{Kind: KindProcessing, Code: "OPERATION_FAILED", Message: "storage operation failed"}
	ErrReadDatabaseRow    = &Error{Kind: KindProcessing, Code: "ROW_SCAN_FAILED", Message: "failed to read database row"}
	ErrInvalidExecContext = &Error{Kind: KindProcessing, Code: "INVALID_EXEC_CONTEXT", Message: "invalid transaction handle"}
)

// NewValidation reports a bad field on a command input.
func NewValidation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]any{"field": field},
	}
}

// NewInvalidPackage reports an unknown or inactive package code.
func NewInvalidPackage(code string) *Error {
	return &Error{
		Kind:    KindInvalidPackage,
		Code:    "INVALID_PACKAGE",
		Message: fmt.Sprintf("invalid package: %s", code),
		Details: map[string]any{"package_code": code},
	}
}

// NewGatewayError wraps a provider failure; gateway names the integration.
func NewGatewayError(gateway string, cause error) *Error {
	return &Error{
		Kind:    KindGateway,
		Code:    "GATEWAY_ERROR",
		Message: fmt.Sprintf("%s gateway call failed", gateway),
		Details: map[string]any{"gateway": gateway},
		cause:   cause,
	}
}

// NewProcessing wraps an internal failure with a stable code.
func NewProcessing(code, message string, cause error) *Error {
	if code == "" {
		code = "PROCESSING_ERROR"
	}
	return &Error{Kind: KindProcessing, Code: code, Message: message, cause: cause}
}

// NewQuotaExceeded reports quota exhaustion for one quota type.
func NewQuotaExceeded(quotaType string, current, limit int) *Error {
	return &Error{
		Kind:    KindQuotaExceeded,
		Code:    "QUOTA_EXCEEDED",
		Message: fmt.Sprintf("%s quota exceeded: %d/%d", quotaType, current, limit),
		Details: map[string]any{"quota_type": quotaType, "current": current, "limit": limit},
	}
}

// NewSubscriptionNotFound reports that a user has no matching subscription.
func NewSubscriptionNotFound(userID string) *Error {
	return &Error{
		Kind:    KindSubscriptionNotFound,
		Code:    "NO_SUBSCRIPTION",
		Message: fmt.Sprintf("no active subscription for user %s", userID),
		Details: map[string]any{"user_id": userID},
	}
}

// NewSubscriptionExpired reports a transition attempted on a terminal
// subscription.
func NewSubscriptionExpired(subscriptionID string, status string) *Error {
	return &Error{
		Kind:    KindSubscriptionExpired,
		Code:    "SUBSCRIPTION_EXPIRED",
		Message: fmt.Sprintf("subscription %s is %s and cannot transition", subscriptionID, status),
		Details: map[string]any{"subscription_id": subscriptionID, "status": status},
	}
}

// NewDuplicatePayment reports a reused (gateway, transaction ref) pair.
func NewDuplicatePayment(gateway, gatewayRef string) *Error {
	return &Error{
		Kind:    KindDuplicatePayment,
		Code:    "DUPLICATE_PAYMENT",
		Message: fmt.Sprintf("payment already processed (gateway=%s ref=%s)", gateway, gatewayRef),
		Details: map[string]any{"gateway": gateway, "gateway_ref": gatewayRef},
	}
}

// NewWebhookVerification reports a signature check failure for a gateway.
func NewWebhookVerification(gateway string) *Error {
	return &Error{
		Kind:    KindWebhookVerification,
		Code:    "WEBHOOK_VERIFICATION_FAILED",
		Message: fmt.Sprintf("%s webhook verification failed", gateway),
		Details: map[string]any{"gateway": gateway},
	}
}

// NewRefundError reports an illegal or failed refund.
func NewRefundError(paymentID, message string) *Error {
	return &Error{
		Kind:    KindRefund,
		Code:    "REFUND_ERROR",
		Message: message,
		Details: map[string]any{"payment_id": paymentID},
	}
}

// KindOf extracts the kind from any error chain; unknown errors are
// processing failures.
func KindOf(err error) ErrorKind {
	for err != nil {
		if de, ok := err.(*Error); ok {
			return de.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return KindProcessing
}

// HTTPStatus maps an error kind to the externally visible status class.
// The mapping is total: every kind resolves to exactly one status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidPackage, KindWebhookVerification, KindRefund:
		return http.StatusBadRequest
	case KindDuplicatePayment:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusForbidden
	case KindSubscriptionNotFound, KindNotFound:
		return http.StatusNotFound
	case KindSubscriptionExpired:
		return http.StatusPaymentRequired
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
