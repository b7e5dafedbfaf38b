package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedLookups(t *testing.T) {
	c := Seed()

	t.Run("order by raw id", func(t *testing.T) {
		o, ok := c.Order("ORD004")
		require.True(t, ok)
		assert.Equal(t, "CUST001", o.CustomerID)
		assert.Equal(t, 199.99, o.Total.Float64())
	})

	t.Run("order by hyphenated id", func(t *testing.T) {
		o, ok := c.Order("ORD-004")
		require.True(t, ok)
		assert.Equal(t, "ORD004", o.ID)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, ok := c.Order("ORD999")
		assert.False(t, ok)
	})

	t.Run("customer by hyphenated id", func(t *testing.T) {
		cust, ok := c.Customer("CUST-001")
		require.True(t, ok)
		assert.Equal(t, "Michael Chen", cust.Name)
		assert.Contains(t, cust.OrderIDs, "ORD004")
	})

	t.Run("customers sorted", func(t *testing.T) {
		all := c.Customers()
		require.NotEmpty(t, all)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	})
}

func TestOrdersForCustomer(t *testing.T) {
	c := Seed()
	orders := c.OrdersForCustomer("CUST-005")
	require.Len(t, orders, 3)
	// Newest first.
	for i := 1; i < len(orders); i++ {
		assert.True(t, !orders[i].OrderDate.After(orders[i-1].OrderDate))
	}
}

func TestTransactions(t *testing.T) {
	c := Seed()
	txns := c.Transactions("ORD-001")
	require.Len(t, txns, 1)
	assert.Equal(t, "charge", txns[0].Type)
	assert.Equal(t, 149.99, txns[0].Amount.Float64())

	assert.Empty(t, c.Transactions("ORD999"))
}
