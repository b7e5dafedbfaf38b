// Package catalog is the read-only order/customer data provider the refund
// components query by key. Identifiers are looked up in normalized form
// first, then raw, so "ORD-001" and "ORD001" resolve to the same record.
package catalog

import (
	"time"

	"github.com/clearway-labs/refunddesk/pkg/money"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// ItemCondition is the reported return condition of a line item.
type ItemCondition string

const (
	ConditionUnopened  ItemCondition = "unopened"
	ConditionUsed      ItemCondition = "used"
	ConditionDefective ItemCondition = "defective"
	ConditionWrongItem ItemCondition = "wrong_item"
	ConditionUnknown   ItemCondition = "unknown"
)

// Customer is an immutable customer record.
type Customer struct {
	ID       string   `json:"customer_id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	OrderIDs []string `json:"orders"`
	LastFour string   `json:"last_four"`
}

// Item is a line item within an order.
type Item struct {
	ID                string        `json:"item_id"`
	ProductName       string        `json:"product_name"`
	Quantity          int           `json:"quantity"`
	UnitPrice         money.Money   `json:"unit_price"`
	Condition         ItemCondition `json:"condition"`
	FulfillmentStatus string        `json:"fulfillment_status"`
}

// Order is an immutable order record.
type Order struct {
	ID            string      `json:"order_id"`
	CustomerID    string      `json:"customer_id"`
	OrderDate     time.Time   `json:"order_date"`
	Status        OrderStatus `json:"status"`
	Total         money.Money `json:"total"`
	Items         []Item      `json:"items"`
	PaymentMethod string      `json:"payment_method"`
	LastFour      string      `json:"last_four"`
}

// Currency returns the order's ISO currency code.
func (o *Order) Currency() string {
	return o.Total.Currency
}

// Transaction is a payment event attached to an order.
type Transaction struct {
	ID            string      `json:"transaction_id"`
	OrderID       string      `json:"order_id"`
	Type          string      `json:"type"` // charge | refund
	Amount        money.Money `json:"amount"`
	Status        string      `json:"status"`
	Timestamp     time.Time   `json:"timestamp"`
	PaymentMethod string      `json:"payment_method"`
	LastFour      string      `json:"last_four"`
}
