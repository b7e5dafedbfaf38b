package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway-labs/refunddesk/pkg/catalog"
	"github.com/clearway-labs/refunddesk/pkg/money"
)

var evalTime = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func usd(amount float64) money.Money { return money.FromFloat(amount, "USD") }

// fixtureCatalog builds orders with dates relative to the fixed evaluation
// time so the window checks are deterministic.
func fixtureCatalog(orders ...*catalog.Order) catalog.Catalog {
	return catalog.NewInMemory(nil, orders, nil)
}

func order(id, customerID string, daysOld int, status catalog.OrderStatus, items ...catalog.Item) *catalog.Order {
	total := money.Zero("USD")
	for _, it := range items {
		total, _ = total.Add(it.UnitPrice.MulQuantity(it.Quantity))
	}
	return &catalog.Order{
		ID:         id,
		CustomerID: customerID,
		OrderDate:  evalTime.AddDate(0, 0, -daysOld),
		Status:     status,
		Total:      total,
		Items:      items,
	}
}

func item(id string, price float64, qty int, cond catalog.ItemCondition) catalog.Item {
	return catalog.Item{ID: id, ProductName: id, Quantity: qty, UnitPrice: usd(price), Condition: cond}
}

func newEngine(cat catalog.Catalog) *Engine {
	return NewEngine(cat, Default(), WithClock(func() time.Time { return evalTime }))
}

func TestCheckEligibilityResolution(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD100", "CUST100", 5, catalog.StatusDelivered, item("ITEM100", 10, 1, catalog.ConditionUnopened)),
	))

	t.Run("unknown order", func(t *testing.T) {
		_, err := e.CheckEligibility("ORD999", "CUST100", nil, "")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("ownership mismatch", func(t *testing.T) {
		_, err := e.CheckEligibility("ORD100", "CUST999", nil, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("normalized references resolve", func(t *testing.T) {
		v, err := e.CheckEligibility("ORD-100", "CUST-100", nil, "doesn't fit")
		require.NoError(t, err)
		assert.True(t, v.Eligible)
		assert.Equal(t, "ORD100", v.OrderRef)
		assert.Equal(t, "CUST100", v.CustomerID)
	})
}

func TestTimeWindowHardGate(t *testing.T) {
	t.Run("31 days old is ineligible regardless of items", func(t *testing.T) {
		e := newEngine(fixtureCatalog(
			order("ORD101", "CUST101", 31, catalog.StatusDelivered, item("ITEM101", 50, 1, catalog.ConditionUnopened)),
		))
		v, err := e.CheckEligibility("ORD101", "CUST101", nil, "")
		require.NoError(t, err)
		assert.False(t, v.Eligible)
		assert.Equal(t, ActionExchangeCredit, v.SuggestedAction)
		// Item-level results are still reported.
		require.Len(t, v.Items, 1)
		assert.Equal(t, ItemFullyEligible, v.Items[0].Eligibility)
	})

	t.Run("29 days old with unopened items gets full refund", func(t *testing.T) {
		e := newEngine(fixtureCatalog(
			order("ORD102", "CUST102", 29, catalog.StatusDelivered,
				item("ITEM102", 99.99, 1, catalog.ConditionUnopened),
				item("ITEM103", 25.00, 2, catalog.ConditionUnopened)),
		))
		v, err := e.CheckEligibility("ORD102", "CUST102", nil, "")
		require.NoError(t, err)
		assert.True(t, v.Eligible)
		assert.Equal(t, ActionFullRefund, v.SuggestedAction)
		assert.Equal(t, 149.99, v.TotalRefund.Float64())
	})
}

func TestStatusCheck(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD103", "CUST103", 5, catalog.StatusShipped, item("ITEM104", 75, 1, catalog.ConditionUnopened)),
	))
	v, err := e.CheckEligibility("ORD103", "CUST103", nil, "")
	require.NoError(t, err)
	assert.False(t, v.Eligible)
	assert.Equal(t, ActionEscalate, v.SuggestedAction)
	// Status failure does not block item-level computation.
	require.Len(t, v.Items, 1)
	assert.Equal(t, 75.0, v.Items[0].RefundAmount.Float64())
}

func TestUsedItemRestockingFee(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD104", "CUST104", 5, catalog.StatusDelivered,
			item("ITEM105", 100.00, 1, catalog.ConditionUsed),
			item("ITEM106", 50.00, 1, catalog.ConditionUnopened)),
	))
	v, err := e.CheckEligibility("ORD104", "CUST104", nil, "")
	require.NoError(t, err)

	assert.True(t, v.Eligible)
	assert.Equal(t, ActionPartialRefund, v.SuggestedAction)

	byID := map[string]ItemVerdict{}
	for _, iv := range v.Items {
		byID[iv.ItemID] = iv
	}
	assert.Equal(t, ItemPartial, byID["ITEM105"].Eligibility)
	assert.Equal(t, 90.00, byID["ITEM105"].RefundAmount.Float64())
	assert.Equal(t, ItemFullyEligible, byID["ITEM106"].Eligibility)
	assert.Equal(t, 140.00, v.TotalRefund.Float64())
}

func TestUsedItemQuantityCounts(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD105", "CUST105", 5, catalog.StatusDelivered, item("ITEM107", 100.00, 3, catalog.ConditionUsed)),
	))
	v, err := e.CheckEligibility("ORD105", "CUST105", nil, "")
	require.NoError(t, err)
	// unit x qty x (1 - fee) = 100 x 3 x 0.9
	assert.Equal(t, 270.00, v.TotalRefund.Float64())
}

// TestEligibilityItemIndependence pins the redesigned behavior: a used item
// must not drag an unrelated ineligible item into eligibility.
func TestEligibilityItemIndependence(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD106", "CUST106", 5, catalog.StatusDelivered,
			item("ITEM108", 100.00, 1, catalog.ConditionUsed),
			item("ITEM109", 40.00, 1, catalog.ConditionUnknown)),
	))
	v, err := e.CheckEligibility("ORD106", "CUST106", nil, "")
	require.NoError(t, err)

	byID := map[string]ItemVerdict{}
	for _, iv := range v.Items {
		byID[iv.ItemID] = iv
	}
	assert.Equal(t, ItemIneligible, byID["ITEM109"].Eligibility)
	assert.True(t, byID["ITEM109"].RefundAmount.IsZero())
	assert.Equal(t, 90.00, v.TotalRefund.Float64())
	assert.Equal(t, ActionPartialRefund, v.SuggestedAction)
}

func TestItemSubsetSelection(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD107", "CUST107", 5, catalog.StatusDelivered,
			item("ITEM110", 99.99, 1, catalog.ConditionUnopened),
			item("ITEM111", 25.00, 2, catalog.ConditionUnopened)),
	))
	v, err := e.CheckEligibility("ORD107", "CUST107", []string{"ITEM-111"}, "")
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "ITEM111", v.Items[0].ItemID)
	assert.Equal(t, 50.00, v.TotalRefund.Float64())
}

func TestNoEligibleItems(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD108", "CUST108", 5, catalog.StatusDelivered, item("ITEM112", 30, 1, catalog.ConditionUnknown)),
	))
	v, err := e.CheckEligibility("ORD108", "CUST108", nil, "")
	require.NoError(t, err)
	assert.False(t, v.Eligible)
	assert.Equal(t, ActionEscalate, v.SuggestedAction)
	assert.Contains(t, v.Issues, "no eligible items found")
}

func TestMinimumRefundFloor(t *testing.T) {
	cfg := Default()
	cfg.MinRefundAmount = 5.00
	e := NewEngine(fixtureCatalog(
		order("ORD109", "CUST109", 5, catalog.StatusDelivered, item("ITEM113", 1.00, 1, catalog.ConditionUnopened)),
	), cfg, WithClock(func() time.Time { return evalTime }))

	v, err := e.CheckEligibility("ORD109", "CUST109", nil, "")
	require.NoError(t, err)
	assert.False(t, v.Eligible)
	assert.Equal(t, ActionEscalate, v.SuggestedAction)
}

func TestVerdictCarriesBreakdown(t *testing.T) {
	e := newEngine(fixtureCatalog(
		order("ORD110", "CUST110", 12, catalog.StatusDelivered, item("ITEM114", 199.99, 1, catalog.ConditionUnopened)),
	))
	v, err := e.CheckEligibility("ORD110", "CUST110", nil, "changed my mind")
	require.NoError(t, err)

	require.Len(t, v.Checks, 3)
	assert.Equal(t, "time_window", v.Checks[0].Check)
	assert.Equal(t, 12, v.Checks[0].Details["days_since_order"])
	assert.Equal(t, "order_status", v.Checks[1].Check)
	assert.Equal(t, "item_eligibility", v.Checks[2].Check)
	assert.Equal(t, "changed my mind", v.Reason)
	assert.Equal(t, Default().PolicyVersion, v.PolicyVersion)
	assert.Equal(t, 199.99, v.TotalRefund.Float64())
}
