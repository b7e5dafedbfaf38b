package refund

import (
	"time"

	"github.com/clearway-labs/refunddesk/pkg/money"
)

// Receipt is a read-only view derived from a refund record plus enrichment.
// It is never stored separately from the record it derives from; retrieval
// recomputes it, so repeated reads stay consistent with the ledger.
type Receipt struct {
	RefundID            string      `json:"refund_id"`
	OrderRef            string      `json:"order_id"`
	CustomerID          string      `json:"customer_id"`
	Amount              money.Money `json:"refund_amount"`
	AmountDisplay       string      `json:"refund_amount_display"`
	Method              Method      `json:"refund_method"`
	Reason              string      `json:"reason"`
	ProcessedAt         time.Time   `json:"processed_at"`
	EstimatedCreditDate time.Time   `json:"estimated_credit_date"`
	ReferenceNumber     string      `json:"reference_number"`
	ItemsRefunded       []string    `json:"items_refunded,omitempty"`
	OriginalOrderTotal  money.Money `json:"original_order_total"`
}

// DeriveReceipt computes the receipt for a record. Pure function: the same
// record always yields byte-identical JSON.
func DeriveReceipt(rec Record) Receipt {
	delay := creditDelayDays[rec.Method]
	return Receipt{
		RefundID:            rec.RefundID,
		OrderRef:            rec.OrderRef,
		CustomerID:          rec.CustomerID,
		Amount:              rec.Amount,
		AmountDisplay:       rec.Amount.Display(),
		Method:              rec.Method,
		Reason:              rec.Reason,
		ProcessedAt:         rec.ProcessedAt,
		EstimatedCreditDate: rec.ProcessedAt.AddDate(0, 0, delay),
		ReferenceNumber:     "RCPT-" + rec.RefundID,
		ItemsRefunded:       rec.ItemRefs,
		OriginalOrderTotal:  rec.OriginalTotal,
	}
}
