package service

import (
	"context"

	"github.com/clearway-labs/refunddesk/pkg/audit"
	"github.com/clearway-labs/refunddesk/pkg/catalog"
)

const defaultOrderLimit = 10

// ListOrdersRequest asks for a customer's recent orders. OrderRef, when
// given, narrows the result to that single order.
type ListOrdersRequest struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	OrderRef   string `json:"order_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ListOrdersResult carries the customer's orders, newest first.
type ListOrdersResult struct {
	CustomerID string           `json:"customer_id"`
	Orders     []*catalog.Order `json:"orders"`
	Count      int              `json:"count"`
	AuditStatus
}

// ListOrders returns up to Limit (default 10) of the customer's most recent
// orders.
func (s *Service) ListOrders(ctx context.Context, req ListOrdersRequest) (ListOrdersResult, error) {
	ctx, finish := s.track(ctx, "listOrders", req.SessionID)

	var result ListOrdersResult
	var err error
	cust, ok := s.catalog.Customer(req.CustomerID)
	if !ok {
		err = newFailure(FailureNotFound, "customer %s not found", req.CustomerID)
	} else {
		limit := req.Limit
		if limit <= 0 {
			limit = defaultOrderLimit
		}
		orders := s.catalog.OrdersForCustomer(cust.ID)
		if req.OrderRef != "" {
			orders = filterByRef(orders, req.OrderRef)
		}
		if len(orders) > limit {
			orders = orders[:limit]
		}
		result = ListOrdersResult{CustomerID: cust.ID, Orders: orders, Count: len(orders)}
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   req.CustomerID,
		Operation:    "listOrders",
		DecisionType: "catalog_lookup",
		Inputs: map[string]any{
			"customer_id": req.CustomerID,
			"order_id":    req.OrderRef,
			"limit":       req.Limit,
		},
		Outcome: outcomeFor(err, map[string]any{"order_count": result.Count}),
	})
	if err != nil {
		return ListOrdersResult{}, err
	}
	result.AuditStatus = status
	return result, nil
}

func filterByRef(orders []*catalog.Order, ref string) []*catalog.Order {
	var out []*catalog.Order
	for _, o := range orders {
		if catalog.SameRef(o.ID, ref) {
			out = append(out, o)
		}
	}
	return out
}

// ListTransactionsRequest asks for the payment transactions behind an order.
// CustomerID must own the order.
type ListTransactionsRequest struct {
	SessionID  string `json:"session_id"`
	OrderRef   string `json:"order_id"`
	CustomerID string `json:"customer_id"`
}

// ListTransactionsResult carries an order's transactions.
type ListTransactionsResult struct {
	OrderRef     string                `json:"order_id"`
	Transactions []catalog.Transaction `json:"transactions"`
	Count        int                   `json:"count"`
	AuditStatus
}

// ListTransactions returns the transactions recorded against an order. The
// caller's customer reference is checked against the order's owner before
// any payment detail leaves the catalog.
func (s *Service) ListTransactions(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResult, error) {
	ctx, finish := s.track(ctx, "listTransactions", req.SessionID)

	var result ListTransactionsResult
	var err error
	order, ok := s.catalog.Order(req.OrderRef)
	switch {
	case !ok:
		err = newFailure(FailureNotFound, "order %s not found", req.OrderRef)
	case !ownsOrder(order, req.CustomerID):
		err = newFailure(FailureUnauthorized, "order %s does not belong to customer", req.OrderRef)
	default:
		txns := s.catalog.Transactions(order.ID)
		result = ListTransactionsResult{
			OrderRef:     order.ID,
			Transactions: txns,
			Count:        len(txns),
		}
	}
	finish(err)

	status := s.record(ctx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   req.CustomerID,
		Operation:    "listTransactions",
		DecisionType: "catalog_lookup",
		Inputs: map[string]any{
			"order_id":    req.OrderRef,
			"customer_id": req.CustomerID,
		},
		Outcome: outcomeFor(err, map[string]any{"transaction_count": result.Count}),
	})
	if err != nil {
		return ListTransactionsResult{}, err
	}
	result.AuditStatus = status
	return result, nil
}

// ownsOrder checks order ownership against both the normalized and raw
// customer reference.
func ownsOrder(order *catalog.Order, customerRef string) bool {
	if customerRef == "" {
		return false
	}
	return order.CustomerID == catalog.Normalize(customerRef) || order.CustomerID == customerRef
}
