package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/clearway-labs/refunddesk/pkg/catalog"
	"github.com/clearway-labs/refunddesk/pkg/money"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUnauthorized  = errors.New("order does not belong to customer")
)

// Action is the suggested next step attached to a verdict.
type Action string

const (
	ActionFullRefund     Action = "full_refund"
	ActionPartialRefund  Action = "partial_refund"
	ActionExchangeCredit Action = "exchange_or_store_credit"
	ActionEscalate       Action = "escalate"
)

// ItemEligibility classifies a single item's outcome.
type ItemEligibility string

const (
	ItemFullyEligible ItemEligibility = "eligible"
	ItemPartial       ItemEligibility = "partial"
	ItemIneligible    ItemEligibility = "ineligible"
)

// CheckResult is one named policy check with its supporting detail.
type CheckResult struct {
	Check   string         `json:"check"`
	Passed  bool           `json:"passed"`
	Details map[string]any `json:"details,omitempty"`
}

// ItemVerdict is the per-item evaluation outcome. Each item is judged
// independently of its siblings.
type ItemVerdict struct {
	ItemID       string                `json:"item_id"`
	ProductName  string                `json:"product_name"`
	Condition    catalog.ItemCondition `json:"condition"`
	Eligibility  ItemEligibility       `json:"eligibility"`
	RefundAmount money.Money           `json:"refund_amount"`
	Issues       []string              `json:"issues,omitempty"`
}

// Verdict is the full eligibility evaluation. It is advisory and transient;
// execution independently re-validates ownership. The per-check and per-item
// breakdown lets the caller and the audit trail reconstruct the reasoning
// without re-running the engine.
type Verdict struct {
	Eligible        bool          `json:"eligible"`
	OrderRef        string        `json:"order_id"`
	CustomerID      string        `json:"customer_id"`
	PolicyVersion   string        `json:"policy_version"`
	Checks          []CheckResult `json:"checks"`
	Items           []ItemVerdict `json:"item_details"`
	TotalRefund     money.Money   `json:"total_refund"`
	SuggestedAction Action        `json:"suggested_action"`
	Issues          []string      `json:"issues,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	EvaluatedAt     time.Time     `json:"evaluated_at"`
}

// Engine evaluates refund eligibility against a fixed policy configuration.
// It reads the catalog and holds no mutable state.
type Engine struct {
	catalog catalog.Catalog
	cfg     Config
	clock   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the evaluation clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine creates a policy engine over the catalog with the given config.
func NewEngine(cat catalog.Catalog, cfg Config, opts ...Option) *Engine {
	e := &Engine{catalog: cat, cfg: cfg, clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the policy document the engine evaluates against.
func (e *Engine) Config() Config {
	return e.cfg
}

// CheckEligibility evaluates an order (or a requested item subset) against
// the policy. The time-window check is a hard gate over the whole order;
// the status check contributes to ineligibility but item-level results are
// still computed and reported.
func (e *Engine) CheckEligibility(orderRef, customerID string, itemRefs []string, reason string) (*Verdict, error) {
	order, ok := e.catalog.Order(orderRef)
	if !ok {
		return nil, ErrOrderNotFound
	}
	if !ownerMatches(order, customerID) {
		return nil, ErrUnauthorized
	}

	now := e.clock()
	v := &Verdict{
		OrderRef:      catalog.Normalize(orderRef),
		CustomerID:    catalog.Normalize(customerID),
		PolicyVersion: e.cfg.PolicyVersion,
		Reason:        reason,
		EvaluatedAt:   now.UTC(),
		TotalRefund:   money.Zero(order.Currency()),
	}

	// Time window: elapsed whole days, hard gate.
	days := int(now.Sub(order.OrderDate).Hours() / 24)
	withinWindow := days <= e.cfg.RefundWindowDays
	v.Checks = append(v.Checks, CheckResult{
		Check:  "time_window",
		Passed: withinWindow,
		Details: map[string]any{
			"order_date":       order.OrderDate.UTC().Format(time.RFC3339),
			"days_since_order": days,
			"window_days":      e.cfg.RefundWindowDays,
		},
	})
	if !withinWindow {
		v.Issues = append(v.Issues, fmt.Sprintf("order is %d days old, exceeds %d-day window", days, e.cfg.RefundWindowDays))
	}

	// Order status.
	delivered := order.Status == catalog.StatusDelivered
	v.Checks = append(v.Checks, CheckResult{
		Check:   "order_status",
		Passed:  delivered,
		Details: map[string]any{"status": string(order.Status)},
	})
	if !delivered {
		v.Issues = append(v.Issues, fmt.Sprintf("order status is %s, must be %s", order.Status, catalog.StatusDelivered))
	}

	// Item-level evaluation over the requested subset, independently per item.
	items := selectItems(order.Items, itemRefs)
	anyEligible := false
	allFull := true
	for _, item := range items {
		iv := e.evaluateItem(item, order.Currency())
		v.Items = append(v.Items, iv)
		switch iv.Eligibility {
		case ItemFullyEligible:
			anyEligible = true
		case ItemPartial:
			anyEligible = true
			allFull = false
		default:
			allFull = false
		}
		if iv.Eligibility != ItemIneligible {
			v.TotalRefund, _ = v.TotalRefund.Add(iv.RefundAmount)
		}
	}
	v.Checks = append(v.Checks, CheckResult{
		Check:   "item_eligibility",
		Passed:  anyEligible,
		Details: map[string]any{"items_evaluated": len(items)},
	})
	if len(items) > 0 && !anyEligible {
		v.Issues = append(v.Issues, "no eligible items found")
	}

	minRefund := money.FromFloat(e.cfg.MinRefundAmount, order.Currency())
	belowMinimum := anyEligible && v.TotalRefund.LessThan(minRefund)
	if belowMinimum {
		v.Issues = append(v.Issues, fmt.Sprintf("computed refund %s is below policy minimum %s", v.TotalRefund.Display(), minRefund.Display()))
	}

	v.Eligible = withinWindow && delivered && anyEligible && !belowMinimum

	switch {
	case v.Eligible && allFull:
		v.SuggestedAction = ActionFullRefund
	case v.Eligible:
		v.SuggestedAction = ActionPartialRefund
	case !withinWindow:
		v.SuggestedAction = ActionExchangeCredit
	default:
		v.SuggestedAction = ActionEscalate
	}

	return v, nil
}

// evaluateItem scores one item. Conditions in the allowed set refund in
// full; used items refund at unit price x quantity less the restocking fee;
// anything else is ineligible with zero amount.
func (e *Engine) evaluateItem(item catalog.Item, cur string) ItemVerdict {
	iv := ItemVerdict{
		ItemID:       item.ID,
		ProductName:  item.ProductName,
		Condition:    item.Condition,
		RefundAmount: money.Zero(cur),
	}
	gross := item.UnitPrice.MulQuantity(item.Quantity)

	switch {
	case e.cfg.conditionAllowed(item.Condition):
		iv.Eligibility = ItemFullyEligible
		iv.RefundAmount = gross
	case item.Condition == catalog.ConditionUsed:
		iv.Eligibility = ItemPartial
		iv.RefundAmount = gross.DeductPercent(e.cfg.RestockingFeePercent)
		iv.Issues = append(iv.Issues, fmt.Sprintf("item is used, %v%% restocking fee applies", e.cfg.RestockingFeePercent))
	default:
		iv.Eligibility = ItemIneligible
		iv.Issues = append(iv.Issues, fmt.Sprintf("item condition %q not eligible for refund", item.Condition))
	}
	return iv
}

// selectItems restricts evaluation to the requested refs (normalized match),
// or all items when none are requested.
func selectItems(items []catalog.Item, refs []string) []catalog.Item {
	if len(refs) == 0 {
		return items
	}
	want := make(map[string]bool, len(refs))
	for _, r := range refs {
		want[catalog.Normalize(r)] = true
		want[r] = true
	}
	var out []catalog.Item
	for _, item := range items {
		if want[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// ownerMatches checks order ownership against both the normalized and raw
// customer reference.
func ownerMatches(order *catalog.Order, customerRef string) bool {
	return order.CustomerID == catalog.Normalize(customerRef) || order.CustomerID == customerRef
}
