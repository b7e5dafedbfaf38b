package refund

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearway-labs/refunddesk/pkg/catalog"
	"github.com/clearway-labs/refunddesk/pkg/money"
)

// creditDelayDays maps a refund method to the estimated settlement delay.
var creditDelayDays = map[Method]int{
	MethodOriginalPayment: 5,
	MethodStoreCredit:     0,
}

// Executor creates refund records and derives receipts. It re-validates
// ownership on every execution rather than trusting a prior eligibility
// verdict.
type Executor struct {
	catalog catalog.Catalog
	store   Store
	clock   func() time.Time
	newID   func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the processing clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) { e.clock = clock }
}

// WithIDGenerator overrides refund id generation for testing.
func WithIDGenerator(gen func() string) Option {
	return func(e *Executor) { e.newID = gen }
}

// NewExecutor creates a refund executor over the catalog and store.
func NewExecutor(cat catalog.Catalog, store Store, opts ...Option) *Executor {
	e := &Executor{
		catalog: cat,
		store:   store,
		clock:   time.Now,
		newID:   generateRefundID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute creates an immutable refund record for an order the customer owns
// and returns it with the derived receipt. Amount resolution order:
// caller override, requested items' unit x quantity sum, order total.
func (e *Executor) Execute(orderRef, customerID, reason string, itemRefs []string, amountOverride *float64, method Method) (Record, Receipt, error) {
	if strings.TrimSpace(reason) == "" {
		return Record{}, Receipt{}, ErrReasonRequired
	}
	order, ok := e.catalog.Order(orderRef)
	if !ok {
		return Record{}, Receipt{}, ErrOrderNotFound
	}
	if order.CustomerID != catalog.Normalize(customerID) && order.CustomerID != customerID {
		return Record{}, Receipt{}, ErrUnauthorized
	}
	if method != MethodStoreCredit {
		method = MethodOriginalPayment
	}

	amount := e.resolveAmount(order, itemRefs, amountOverride)

	rec := Record{
		RefundID:      e.newID(),
		OrderRef:      catalog.Normalize(orderRef),
		CustomerID:    catalog.Normalize(customerID),
		Amount:        amount,
		Method:        method,
		Reason:        reason,
		Status:        "completed",
		ProcessedAt:   e.clock().UTC(),
		ItemRefs:      normalizeRefs(itemRefs),
		OriginalDate:  order.OrderDate,
		OriginalTotal: order.Total,
	}
	if err := e.store.Put(rec); err != nil {
		return Record{}, Receipt{}, fmt.Errorf("store refund record: %w", err)
	}
	return rec, DeriveReceipt(rec), nil
}

// GetReceipt re-derives the receipt for a stored refund record. When an
// order reference is supplied it is cross-validated against the record.
// Derivation is pure, so repeated reads are identical.
func (e *Executor) GetReceipt(refundID, orderRef string) (Receipt, error) {
	rec, ok := e.store.Get(refundID)
	if !ok {
		return Receipt{}, ErrRefundNotFound
	}
	if orderRef != "" && !catalog.SameRef(rec.OrderRef, orderRef) {
		return Receipt{}, ErrOrderMismatch
	}
	return DeriveReceipt(rec), nil
}

func (e *Executor) resolveAmount(order *catalog.Order, itemRefs []string, override *float64) money.Money {
	if override != nil {
		return money.FromFloat(*override, order.Currency())
	}
	if len(itemRefs) == 0 {
		return order.Total
	}
	want := make(map[string]bool, len(itemRefs))
	for _, r := range itemRefs {
		want[catalog.Normalize(r)] = true
		want[r] = true
	}
	total := money.Zero(order.Currency())
	for _, item := range order.Items {
		if want[item.ID] {
			total, _ = total.Add(item.UnitPrice.MulQuantity(item.Quantity))
		}
	}
	return total
}

func normalizeRefs(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = catalog.Normalize(r)
	}
	return out
}

// generateRefundID produces ids like REF3FA9C21B.
func generateRefundID() string {
	u := uuid.New()
	return "REF" + strings.ToUpper(hex.EncodeToString(u[:4]))
}
