package catalog

import "sort"

// Catalog is the read-only data provider for orders, customers, and payment
// transactions. Implementations must be safe for concurrent reads.
type Catalog interface {
	// Order resolves an order reference, trying the normalized form first.
	Order(ref string) (*Order, bool)
	// Customer resolves a customer reference, trying the normalized form first.
	Customer(ref string) (*Customer, bool)
	// Customers returns all customers, ordered by id.
	Customers() []*Customer
	// OrdersForCustomer returns the orders owned by a customer, newest first.
	OrdersForCustomer(customerRef string) []*Order
	// Transactions returns the payment events for an order.
	Transactions(orderRef string) []Transaction
}

// InMemory is a map-backed Catalog. All maps are populated at construction
// and never mutated afterwards, so reads need no locking.
type InMemory struct {
	customers    map[string]*Customer
	orders       map[string]*Order
	transactions map[string][]Transaction
}

// NewInMemory builds a catalog from explicit records. Records are keyed by
// their stored identifiers; lookups handle separator-insensitive references.
func NewInMemory(customers []*Customer, orders []*Order, transactions []Transaction) *InMemory {
	c := &InMemory{
		customers:    make(map[string]*Customer, len(customers)),
		orders:       make(map[string]*Order, len(orders)),
		transactions: make(map[string][]Transaction),
	}
	for _, cust := range customers {
		c.customers[cust.ID] = cust
	}
	for _, ord := range orders {
		c.orders[ord.ID] = ord
	}
	for _, txn := range transactions {
		c.transactions[txn.OrderID] = append(c.transactions[txn.OrderID], txn)
	}
	return c
}

func (c *InMemory) Order(ref string) (*Order, bool) {
	if o, ok := c.orders[Normalize(ref)]; ok {
		return o, true
	}
	o, ok := c.orders[ref]
	return o, ok
}

func (c *InMemory) Customer(ref string) (*Customer, bool) {
	if cust, ok := c.customers[Normalize(ref)]; ok {
		return cust, true
	}
	cust, ok := c.customers[ref]
	return cust, ok
}

func (c *InMemory) Customers() []*Customer {
	out := make([]*Customer, 0, len(c.customers))
	for _, cust := range c.customers {
		out = append(out, cust)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *InMemory) OrdersForCustomer(customerRef string) []*Order {
	normalized := Normalize(customerRef)
	var out []*Order
	for _, o := range c.orders {
		if o.CustomerID == normalized || o.CustomerID == customerRef {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out
}

func (c *InMemory) Transactions(orderRef string) []Transaction {
	if txns, ok := c.transactions[Normalize(orderRef)]; ok {
		return txns
	}
	return c.transactions[orderRef]
}
