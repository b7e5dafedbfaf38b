package service

import (
	"context"

	"github.com/clearway-labs/refunddesk/pkg/audit"
	"github.com/clearway-labs/refunddesk/pkg/policy"
	"github.com/clearway-labs/refunddesk/pkg/refund"
)

// CheckEligibilityRequest asks the policy engine to evaluate an order.
type CheckEligibilityRequest struct {
	SessionID  string   `json:"session_id"`
	OrderRef   string   `json:"order_id"`
	CustomerID string   `json:"customer_id"`
	ItemRefs   []string `json:"item_ids,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// CheckEligibilityResult is the verdict plus the audit write status.
type CheckEligibilityResult struct {
	*policy.Verdict
	AuditStatus
}

// CheckEligibility evaluates refund eligibility for an order or item subset.
// The verdict is advisory; execution re-validates independently.
func (s *Service) CheckEligibility(ctx context.Context, req CheckEligibilityRequest) (CheckEligibilityResult, error) {
	ctx, finish := s.track(ctx, "checkEligibility", req.SessionID)

	verdict, err := s.engine.CheckEligibility(req.OrderRef, req.CustomerID, req.ItemRefs, req.Reason)
	if err != nil {
		err = classify(err)
	}
	finish(err)

	d := audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   req.CustomerID,
		Operation:    "checkEligibility",
		DecisionType: "eligibility",
		Inputs: map[string]any{
			"order_id": req.OrderRef,
			"item_ids": req.ItemRefs,
			"reason":   req.Reason,
		},
	}
	if verdict != nil {
		d.PolicyChecks = verdict.Checks
		d.Outcome = outcomeFor(err, map[string]any{
			"eligible":         verdict.Eligible,
			"total_refund":     verdict.TotalRefund.Float64(),
			"suggested_action": string(verdict.SuggestedAction),
			"policy_version":   verdict.PolicyVersion,
		})
	} else {
		d.Outcome = outcomeFor(err, nil)
	}
	status := s.record(ctx, d)

	if err != nil {
		return CheckEligibilityResult{}, err
	}
	return CheckEligibilityResult{Verdict: verdict, AuditStatus: status}, nil
}

// ExecuteRefundRequest asks for a refund to be executed.
type ExecuteRefundRequest struct {
	SessionID      string        `json:"session_id"`
	OrderRef       string        `json:"order_id"`
	CustomerID     string        `json:"customer_id"`
	Reason         string        `json:"reason"`
	ItemRefs       []string      `json:"item_ids,omitempty"`
	AmountOverride *float64      `json:"amount,omitempty"`
	Method         refund.Method `json:"method,omitempty"`
}

// ExecuteRefundResult carries the ledger record and its derived receipt.
type ExecuteRefundResult struct {
	Record  refund.Record  `json:"record"`
	Receipt refund.Receipt `json:"receipt"`
	AuditStatus
}

// ExecuteRefund records the refund and returns its receipt.
func (s *Service) ExecuteRefund(ctx context.Context, req ExecuteRefundRequest) (ExecuteRefundResult, error) {
	ctx, finish := s.track(ctx, "executeRefund", req.SessionID)

	rec, receipt, err := s.executor.Execute(req.OrderRef, req.CustomerID, req.Reason, req.ItemRefs, req.AmountOverride, req.Method)
	if err != nil {
		err = classify(err)
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   req.CustomerID,
		Operation:    "executeRefund",
		DecisionType: "refund_execution",
		Inputs: map[string]any{
			"order_id":        req.OrderRef,
			"item_ids":        req.ItemRefs,
			"reason":          req.Reason,
			"method":          string(req.Method),
			"amount_override": req.AmountOverride != nil,
		},
		Outcome: outcomeFor(err, map[string]any{
			"refund_id": rec.RefundID,
			"amount":    rec.Amount.Float64(),
			"status":    rec.Status,
		}),
	})
	if err != nil {
		return ExecuteRefundResult{}, err
	}
	return ExecuteRefundResult{Record: rec, Receipt: receipt, AuditStatus: status}, nil
}

// GetReceiptRequest asks for a previously issued refund's receipt.
type GetReceiptRequest struct {
	SessionID string `json:"session_id"`
	RefundID  string `json:"refund_id"`
	OrderRef  string `json:"order_id,omitempty"`
}

// GetReceiptResult is the re-derived receipt plus the audit write status.
type GetReceiptResult struct {
	refund.Receipt
	AuditStatus
}

// GetReceipt re-derives the receipt for a recorded refund. When OrderRef is
// given it is cross-checked against the record.
func (s *Service) GetReceipt(ctx context.Context, req GetReceiptRequest) (GetReceiptResult, error) {
	ctx, finish := s.track(ctx, "getReceipt", req.SessionID)

	receipt, err := s.executor.GetReceipt(req.RefundID, req.OrderRef)
	if err != nil {
		err = classify(err)
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   receipt.CustomerID,
		Operation:    "getReceipt",
		DecisionType: "receipt_lookup",
		Inputs: map[string]any{
			"refund_id": req.RefundID,
			"order_id":  req.OrderRef,
		},
		Outcome: outcomeFor(err, map[string]any{"reference_number": receipt.ReferenceNumber}),
	})
	if err != nil {
		return GetReceiptResult{}, err
	}
	return GetReceiptResult{Receipt: receipt, AuditStatus: status}, nil
}
