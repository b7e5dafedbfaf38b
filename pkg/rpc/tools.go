// Package rpc exposes the refund service as a tool catalog over stdio
// JSON-RPC. Tool arguments are validated against compiled JSON Schemas
// before they reach the service.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/clearway-labs/refunddesk/pkg/service"
)

// Handler executes one tool call with validated raw arguments.
type Handler func(ctx context.Context, sessionID string, args []byte) (any, error)

// Tool is one catalog entry: wire metadata plus its compiled schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`

	compiled *jsonschema.Schema
	handler  Handler
}

// Registry holds the tool catalog for one service instance.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
}

// NewRegistry builds and compiles the full tool catalog.
func NewRegistry(svc *service.Service) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Tool)}
	for _, def := range toolDefinitions(svc) {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://refunddesk.schemas.local/tools/%s.schema.json", def.Name)
		if err := c.AddResource(url, strings.NewReader(string(def.InputSchema))); err != nil {
			return nil, fmt.Errorf("load schema for %s: %w", def.Name, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		def.compiled = compiled
		r.tools = append(r.tools, def)
		r.byName[def.Name] = def
	}
	return r, nil
}

// Tools returns the catalog in registration order.
func (r *Registry) Tools() []*Tool {
	return r.tools
}

// Call validates args against the tool's schema and dispatches.
func (r *Registry) Call(ctx context.Context, sessionID, name string, args map[string]any) (any, error) {
	tool, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := tool.compiled.Validate(args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("re-encode arguments for %s: %w", name, err)
	}
	return tool.handler(ctx, sessionID, raw)
}

func decode[T any](args []byte) (T, error) {
	var req T
	if err := json.Unmarshal(args, &req); err != nil {
		return req, fmt.Errorf("decode arguments: %w", err)
	}
	return req, nil
}

func toolDefinitions(svc *service.Service) []*Tool {
	return []*Tool{
		{
			Name:        "match_customer",
			Description: "Check whether a claimed customer name matches the owner of an order. Returns the customer id on a match.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"order_id": {"type": "string"},
					"customer_name": {"type": "string"}
				},
				"required": ["order_id", "customer_name"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.MatchCustomerRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.MatchCustomer(ctx, req)
			},
		},
		{
			Name:        "send_passcode",
			Description: "Send a one-time verification passcode to the customer's contact on file.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"customer_id": {"type": "string"},
					"method": {"type": "string", "enum": ["email", "sms"]}
				},
				"required": ["customer_id"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.SendPasscodeRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.SendPasscode(ctx, req)
			},
		},
		{
			Name:        "confirm_passcode",
			Description: "Check a passcode the customer read back against their active challenge.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"customer_id": {"type": "string"},
					"code": {"type": "string"}
				},
				"required": ["customer_id", "code"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.ConfirmPasscodeRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.ConfirmPasscode(ctx, req)
			},
		},
		{
			Name:        "verify_identity",
			Description: "Resolve the customer by id or order ownership and confirm their passcode in one step. email, phone, and last_four are deprecated and ignored.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"order_id": {"type": "string"},
					"customer_id": {"type": "string"},
					"code": {"type": "string"},
					"email": {"type": "string"},
					"phone": {"type": "string"},
					"last_four": {"type": "string"}
				},
				"required": ["code"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.VerifyIdentityRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.VerifyIdentity(ctx, req)
			},
		},
		{
			Name:        "list_orders",
			Description: "List a customer's most recent orders, newest first. Pass order_id to look up a single order.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"customer_id": {"type": "string"},
					"order_id": {"type": "string"},
					"limit": {"type": "integer", "minimum": 1}
				},
				"required": ["customer_id"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.ListOrdersRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.ListOrders(ctx, req)
			},
		},
		{
			Name:        "list_transactions",
			Description: "List the payment transactions recorded against an order the customer owns.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"order_id": {"type": "string"},
					"customer_id": {"type": "string"}
				},
				"required": ["order_id", "customer_id"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.ListTransactionsRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.ListTransactions(ctx, req)
			},
		},
		{
			Name:        "check_refund_eligibility",
			Description: "Evaluate an order, or a subset of its items, against the refund policy. Advisory only.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"order_id": {"type": "string"},
					"customer_id": {"type": "string"},
					"item_ids": {"type": "array", "items": {"type": "string"}},
					"reason": {"type": "string"}
				},
				"required": ["order_id", "customer_id"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.CheckEligibilityRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.CheckEligibility(ctx, req)
			},
		},
		{
			Name:        "process_refund",
			Description: "Execute a refund for an order and return the refund record and receipt.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"order_id": {"type": "string"},
					"customer_id": {"type": "string"},
					"reason": {"type": "string"},
					"item_ids": {"type": "array", "items": {"type": "string"}},
					"amount": {"type": "number", "exclusiveMinimum": 0},
					"method": {"type": "string", "enum": ["original_payment", "store_credit"]}
				},
				"required": ["order_id", "customer_id", "reason"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.ExecuteRefundRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.ExecuteRefund(ctx, req)
			},
		},
		{
			Name:        "get_refund_receipt",
			Description: "Fetch the receipt for a previously processed refund. order_id, when given, is cross-checked.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"refund_id": {"type": "string"},
					"order_id": {"type": "string"}
				},
				"required": ["refund_id"],
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.GetReceiptRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.GetReceipt(ctx, req)
			},
		},
		{
			Name:        "end_call",
			Description: "Close the session: archive the transcript and recording and write the closing audit entry.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"customer_id": {"type": "string"},
					"reason": {"type": "string"},
					"transcript": {"type": ["object", "array"]},
					"audio_base64": {"type": "string"},
					"summary": {"type": "object"}
				},
				"additionalProperties": false
			}`),
			handler: func(ctx context.Context, sessionID string, args []byte) (any, error) {
				req, err := decode[service.FinalizeSessionRequest](args)
				if err != nil {
					return nil, err
				}
				req.SessionID = sessionID
				return svc.FinalizeSession(ctx, req)
			},
		},
	}
}
