package service

import (
	"context"

	"github.com/clearway-labs/refunddesk/pkg/audit"
	"github.com/clearway-labs/refunddesk/pkg/identity"
)

// MatchCustomerRequest asks whether a claimed name matches an order's owner.
type MatchCustomerRequest struct {
	SessionID    string `json:"session_id"`
	OrderRef     string `json:"order_id"`
	CustomerName string `json:"customer_name"`
}

// MatchCustomerResult is the match outcome plus the audit write status.
type MatchCustomerResult struct {
	identity.MatchResult
	AuditStatus
}

// MatchCustomer is the first verification step: order/name match.
func (s *Service) MatchCustomer(ctx context.Context, req MatchCustomerRequest) (MatchCustomerResult, error) {
	ctx, finish := s.track(ctx, "matchCustomer", req.SessionID)

	result, err := s.verifier.MatchByOrderAndName(req.OrderRef, req.CustomerName)
	if err != nil {
		err = classify(err)
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   result.CustomerID,
		Operation:    "matchCustomer",
		DecisionType: "identity",
		Inputs: map[string]any{
			"order_id":      req.OrderRef,
			"customer_name": req.CustomerName,
		},
		Outcome: outcomeFor(err, map[string]any{"matched": result.Matched}),
	})
	if err != nil {
		return MatchCustomerResult{}, err
	}
	return MatchCustomerResult{MatchResult: result, AuditStatus: status}, nil
}

// SendPasscodeRequest asks for a fresh verification passcode.
type SendPasscodeRequest struct {
	SessionID  string          `json:"session_id"`
	CustomerID string          `json:"customer_id"`
	Method     identity.Method `json:"method"`
}

// SendPasscodeResult is the issue outcome plus the audit write status.
type SendPasscodeResult struct {
	identity.IssueResult
	AuditStatus
}

// SendPasscode issues a challenge and dispatches the code to the customer's
// contact on file.
func (s *Service) SendPasscode(ctx context.Context, req SendPasscodeRequest) (SendPasscodeResult, error) {
	ctx, finish := s.track(ctx, "sendPasscode", req.SessionID)

	result, err := s.verifier.IssueChallenge(ctx, req.CustomerID, req.Method)
	if err != nil {
		err = classify(err)
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   req.CustomerID,
		Operation:    "sendPasscode",
		DecisionType: "identity",
		Inputs: map[string]any{
			"customer_id": req.CustomerID,
			"method":      string(req.Method),
		},
		Outcome: outcomeFor(err, map[string]any{
			"issued":           result.Issued,
			"delivery_warning": result.DeliveryWarning != "",
		}),
	})
	if err != nil {
		return SendPasscodeResult{}, err
	}
	return SendPasscodeResult{IssueResult: result, AuditStatus: status}, nil
}

// ConfirmPasscodeRequest checks a passcode against the live challenge.
type ConfirmPasscodeRequest struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	Code       string `json:"code"`
}

// ConfirmPasscodeResult is the confirmation outcome plus the audit write
// status.
type ConfirmPasscodeResult struct {
	identity.ConfirmResult
	AuditStatus
}

// ConfirmPasscode checks the code. The passcode itself is never written to
// the decision log.
func (s *Service) ConfirmPasscode(ctx context.Context, req ConfirmPasscodeRequest) (ConfirmPasscodeResult, error) {
	ctx, finish := s.track(ctx, "confirmPasscode", req.SessionID)

	result, err := s.verifier.ConfirmChallenge(req.CustomerID, req.Code)
	if err != nil {
		err = classify(err)
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   req.CustomerID,
		Operation:    "confirmPasscode",
		DecisionType: "identity",
		Inputs: map[string]any{
			"customer_id":   req.CustomerID,
			"code_provided": req.Code != "",
		},
		Outcome: outcomeFor(err, map[string]any{
			"verified":           result.Verified,
			"attempts_remaining": result.AttemptsRemaining,
		}),
	})
	if err != nil {
		return ConfirmPasscodeResult{}, err
	}
	return ConfirmPasscodeResult{ConfirmResult: result, AuditStatus: status}, nil
}

// VerifyIdentityRequest is the composed verification step. Email, Phone, and
// LastFour are accepted for caller compatibility and ignored.
type VerifyIdentityRequest struct {
	SessionID  string `json:"session_id"`
	OrderRef   string `json:"order_id"`
	CustomerID string `json:"customer_id,omitempty"`
	Code       string `json:"code"`

	// Deprecated: matching on contact details is no longer supported.
	Email string `json:"email,omitempty"`
	// Deprecated: matching on contact details is no longer supported.
	Phone string `json:"phone,omitempty"`
	// Deprecated: matching on payment details is no longer supported.
	LastFour string `json:"last_four,omitempty"`
}

// VerifyIdentityResult is the composed verification outcome plus the audit
// write status.
type VerifyIdentityResult struct {
	identity.FinalizeResult
	AuditStatus
}

// VerifyIdentity resolves the customer and confirms the passcode in one call.
func (s *Service) VerifyIdentity(ctx context.Context, req VerifyIdentityRequest) (VerifyIdentityResult, error) {
	ctx, finish := s.track(ctx, "verifyIdentity", req.SessionID)

	result, err := s.verifier.Finalize(req.OrderRef, req.CustomerID, req.Code, identity.LegacyFields{
		Email:    req.Email,
		Phone:    req.Phone,
		LastFour: req.LastFour,
	})
	if err != nil {
		err = classify(err)
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   result.CustomerID,
		Operation:    "verifyIdentity",
		DecisionType: "identity",
		Inputs: map[string]any{
			"order_id":      req.OrderRef,
			"customer_id":   req.CustomerID,
			"code_provided": req.Code != "",
		},
		Outcome: outcomeFor(err, map[string]any{
			"verified":           result.Verified,
			"attempts_remaining": result.AttemptsRemaining,
		}),
	})
	if err != nil {
		return VerifyIdentityResult{}, err
	}
	return VerifyIdentityResult{FinalizeResult: result, AuditStatus: status}, nil
}
