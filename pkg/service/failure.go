package service

import (
	"errors"
	"fmt"

	"github.com/clearway-labs/refunddesk/pkg/identity"
	"github.com/clearway-labs/refunddesk/pkg/policy"
	"github.com/clearway-labs/refunddesk/pkg/refund"
)

// FailureKind discriminates operation failures for transport mapping.
type FailureKind string

const (
	FailureNotFound     FailureKind = "not_found"
	FailureUnauthorized FailureKind = "unauthorized"
	FailureValidation   FailureKind = "validation_error"
	FailureExpired      FailureKind = "expired"
	FailureRateLimited  FailureKind = "rate_limited"
	FailureMismatch     FailureKind = "mismatch"
	FailureExternal     FailureKind = "external_service_error"
)

// Failure is the error type every Service operation returns on failure. It
// wraps the underlying component error so callers can still errors.Is against
// package sentinels.
type Failure struct {
	Kind    FailureKind
	Message string
	cause   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// newFailure builds a Failure with an explicit kind and message.
func newFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// classify maps component sentinel errors onto failure kinds. Anything
// unrecognized is treated as an external/internal fault.
func classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	kind := FailureExternal
	switch {
	case errors.Is(err, identity.ErrOrderNotFound),
		errors.Is(err, identity.ErrCustomerNotFound),
		errors.Is(err, identity.ErrChallengeNotFound),
		errors.Is(err, policy.ErrOrderNotFound),
		errors.Is(err, refund.ErrOrderNotFound),
		errors.Is(err, refund.ErrRefundNotFound):
		kind = FailureNotFound
	case errors.Is(err, policy.ErrUnauthorized),
		errors.Is(err, refund.ErrUnauthorized):
		kind = FailureUnauthorized
	case errors.Is(err, identity.ErrChallengeExpired):
		kind = FailureExpired
	case errors.Is(err, identity.ErrTooManyAttempts),
		errors.Is(err, identity.ErrIssueThrottled):
		kind = FailureRateLimited
	case errors.Is(err, refund.ErrOrderMismatch):
		kind = FailureMismatch
	case errors.Is(err, identity.ErrCodeRequired),
		errors.Is(err, refund.ErrReasonRequired):
		kind = FailureValidation
	}
	return &Failure{Kind: kind, Message: err.Error(), cause: err}
}

// KindOf reports the failure kind of err, or empty when err is not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
