package catalog

import (
	"fmt"
	"time"

	"github.com/clearway-labs/refunddesk/pkg/money"
)

// Seed returns the demo catalog used by the stdio server when no external
// catalog is wired. Order dates are relative to now so the refund window
// behaves sensibly regardless of when the process starts: most orders fall
// inside a 30-day window, ORD009 and ORD017 deliberately fall outside it.
func Seed() *InMemory {
	now := time.Now().UTC()
	day := func(daysAgo int, hour int) time.Time {
		return now.AddDate(0, 0, -daysAgo).Truncate(time.Hour).Add(time.Duration(hour) * time.Hour)
	}
	usd := func(amount float64) money.Money { return money.FromFloat(amount, "USD") }

	customers := []*Customer{
		{ID: "CUST001", Name: "Michael Chen", Email: "michael.chen@email.com", Phone: "+1-555-0123",
			OrderIDs: []string{"ORD001", "ORD002", "ORD004"}, LastFour: "4532"},
		{ID: "CUST002", Name: "Sarah Johnson", Email: "sarah.johnson@gmail.com", Phone: "+1-555-0456",
			OrderIDs: []string{"ORD003", "ORD005"}, LastFour: "7891"},
		{ID: "CUST003", Name: "David Rodriguez", Email: "david.rodriguez@outlook.com", Phone: "+1-555-0789",
			OrderIDs: []string{"ORD006", "ORD007"}, LastFour: "2345"},
		{ID: "CUST004", Name: "Emily Williams", Email: "emily.williams@yahoo.com", Phone: "+1-555-0321",
			OrderIDs: []string{"ORD008"}, LastFour: "6789"},
		{ID: "CUST005", Name: "James Brown", Email: "james.brown@email.com", Phone: "+1-555-0654",
			OrderIDs: []string{"ORD009", "ORD010", "ORD011"}, LastFour: "1234"},
		{ID: "CUST006", Name: "Jessica Martinez", Email: "jessica.martinez@hotmail.com", Phone: "+1-555-0987",
			OrderIDs: []string{"ORD012"}, LastFour: "5678"},
		{ID: "CUST007", Name: "Robert Taylor", Email: "robert.taylor@gmail.com", Phone: "+1-555-0147",
			OrderIDs: []string{"ORD013", "ORD014"}, LastFour: "9012"},
		{ID: "CUST008", Name: "Amanda Anderson", Email: "amanda.anderson@email.com", Phone: "+1-555-0258",
			OrderIDs: []string{"ORD015"}, LastFour: "3456"},
		{ID: "CUST009", Name: "Ryan Thompson", Email: "ryan.thompson@gmail.com", Phone: "+1-555-0369",
			OrderIDs: []string{"ORD016", "ORD017"}, LastFour: "4567"},
		{ID: "CUST010", Name: "Lisa Garcia", Email: "lisa.garcia@yahoo.com", Phone: "+1-555-0741",
			OrderIDs: []string{"ORD018"}, LastFour: "8901"},
		{ID: "CUST011", Name: "Christopher Lee", Email: "christopher.lee@email.com", Phone: "+1-555-0852",
			OrderIDs: []string{"ORD019", "ORD020"}, LastFour: "2345"},
		{ID: "CUST012", Name: "Nicole White", Email: "nicole.white@outlook.com", Phone: "+1-555-0963",
			OrderIDs: []string{"ORD021"}, LastFour: "6789"},
		{ID: "CUST013", Name: "Kevin Harris", Email: "kevin.harris@hotmail.com", Phone: "+1-555-0147",
			OrderIDs: []string{"ORD022"}, LastFour: "0123"},
		{ID: "CUST014", Name: "Rachel Clark", Email: "rachel.clark@gmail.com", Phone: "+1-555-0258",
			OrderIDs: []string{"ORD023", "ORD024"}, LastFour: "7890"},
	}

	orders := []*Order{
		{ID: "ORD001", CustomerID: "CUST001", OrderDate: day(26, 10), Status: StatusDelivered,
			Total: usd(149.99), PaymentMethod: "card", LastFour: "4532",
			Items: []Item{
				{ID: "ITEM001", ProductName: "Wireless Headphones", Quantity: 1, UnitPrice: usd(99.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
				{ID: "ITEM002", ProductName: "USB-C Cable", Quantity: 2, UnitPrice: usd(25.00),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD002", CustomerID: "CUST001", OrderDate: day(18, 14), Status: StatusDelivered,
			Total: usd(79.99), PaymentMethod: "card", LastFour: "4532",
			Items: []Item{
				{ID: "ITEM003", ProductName: "Phone Case", Quantity: 1, UnitPrice: usd(79.99),
					Condition: ConditionUsed, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD003", CustomerID: "CUST002", OrderDate: day(22, 9), Status: StatusDelivered,
			Total: usd(299.99), PaymentMethod: "card", LastFour: "7891",
			Items: []Item{
				{ID: "ITEM004", ProductName: "Smart Watch", Quantity: 1, UnitPrice: usd(299.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD004", CustomerID: "CUST001", OrderDate: day(12, 11), Status: StatusDelivered,
			Total: usd(199.99), PaymentMethod: "card", LastFour: "4532",
			Items: []Item{
				{ID: "ITEM005", ProductName: "Bluetooth Speaker", Quantity: 1, UnitPrice: usd(199.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD005", CustomerID: "CUST002", OrderDate: day(20, 16), Status: StatusDelivered,
			Total: usd(89.99), PaymentMethod: "card", LastFour: "7891",
			Items: []Item{
				{ID: "ITEM006", ProductName: "Wireless Mouse", Quantity: 1, UnitPrice: usd(89.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD006", CustomerID: "CUST003", OrderDate: day(24, 13), Status: StatusDelivered,
			Total: usd(349.99), PaymentMethod: "card", LastFour: "2345",
			Items: []Item{
				{ID: "ITEM007", ProductName: "Gaming Keyboard", Quantity: 1, UnitPrice: usd(349.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD007", CustomerID: "CUST003", OrderDate: day(9, 9), Status: StatusDelivered,
			Total: usd(129.99), PaymentMethod: "card", LastFour: "2345",
			Items: []Item{
				{ID: "ITEM008", ProductName: "Webcam HD", Quantity: 1, UnitPrice: usd(129.99),
					Condition: ConditionDefective, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD008", CustomerID: "CUST004", OrderDate: day(6, 15), Status: StatusShipped,
			Total: usd(249.99), PaymentMethod: "card", LastFour: "6789",
			Items: []Item{
				{ID: "ITEM009", ProductName: "Tablet Stand", Quantity: 1, UnitPrice: usd(249.99),
					Condition: ConditionUnopened, FulfillmentStatus: "in_transit"},
			}},
		{ID: "ORD009", CustomerID: "CUST005", OrderDate: day(45, 8), Status: StatusDelivered,
			Total: usd(179.99), PaymentMethod: "card", LastFour: "1234",
			Items: []Item{
				{ID: "ITEM010", ProductName: "Portable Charger", Quantity: 1, UnitPrice: usd(179.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD010", CustomerID: "CUST005", OrderDate: day(16, 12), Status: StatusDelivered,
			Total: usd(59.99), PaymentMethod: "card", LastFour: "1234",
			Items: []Item{
				{ID: "ITEM011", ProductName: "Screen Protector", Quantity: 2, UnitPrice: usd(29.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD011", CustomerID: "CUST005", OrderDate: day(4, 10), Status: StatusDelivered,
			Total: usd(399.99), PaymentMethod: "card", LastFour: "1234",
			Items: []Item{
				{ID: "ITEM012", ProductName: "Noise Cancelling Earbuds", Quantity: 1, UnitPrice: usd(399.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD012", CustomerID: "CUST006", OrderDate: day(14, 14), Status: StatusDelivered,
			Total: usd(159.99), PaymentMethod: "card", LastFour: "5678",
			Items: []Item{
				{ID: "ITEM013", ProductName: "USB Hub", Quantity: 1, UnitPrice: usd(159.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD013", CustomerID: "CUST007", OrderDate: day(10, 11), Status: StatusDelivered,
			Total: usd(219.99), PaymentMethod: "card", LastFour: "9012",
			Items: []Item{
				{ID: "ITEM014", ProductName: "External Hard Drive", Quantity: 1, UnitPrice: usd(219.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD014", CustomerID: "CUST007", OrderDate: day(3, 9), Status: StatusDelivered,
			Total: usd(69.99), PaymentMethod: "card", LastFour: "9012",
			Items: []Item{
				{ID: "ITEM015", ProductName: "Laptop Sleeve", Quantity: 1, UnitPrice: usd(69.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD015", CustomerID: "CUST008", OrderDate: day(19, 17), Status: StatusDelivered,
			Total: usd(279.99), PaymentMethod: "card", LastFour: "3456",
			Items: []Item{
				{ID: "ITEM016", ProductName: "Monitor Stand", Quantity: 1, UnitPrice: usd(279.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD016", CustomerID: "CUST009", OrderDate: day(8, 14), Status: StatusDelivered,
			Total: usd(189.99), PaymentMethod: "card", LastFour: "4567",
			Items: []Item{
				{ID: "ITEM017", ProductName: "Mechanical Keyboard", Quantity: 1, UnitPrice: usd(189.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD017", CustomerID: "CUST009", OrderDate: day(95, 10), Status: StatusDelivered,
			Total: usd(119.99), PaymentMethod: "card", LastFour: "4567",
			Items: []Item{
				{ID: "ITEM018", ProductName: "Wireless Charging Pad", Quantity: 1, UnitPrice: usd(119.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD018", CustomerID: "CUST010", OrderDate: day(10, 16), Status: StatusDelivered,
			Total: usd(259.99), PaymentMethod: "card", LastFour: "8901",
			Items: []Item{
				{ID: "ITEM019", ProductName: "Smart Home Hub", Quantity: 1, UnitPrice: usd(259.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD019", CustomerID: "CUST011", OrderDate: day(7, 11), Status: StatusDelivered,
			Total: usd(139.99), PaymentMethod: "card", LastFour: "2345",
			Items: []Item{
				{ID: "ITEM020", ProductName: "USB-C Dock", Quantity: 1, UnitPrice: usd(139.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD020", CustomerID: "CUST011", OrderDate: day(3, 9), Status: StatusDelivered,
			Total: usd(89.99), PaymentMethod: "card", LastFour: "2345",
			Items: []Item{
				{ID: "ITEM021", ProductName: "Laptop Stand Adjustable", Quantity: 1, UnitPrice: usd(89.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD021", CustomerID: "CUST012", OrderDate: day(6, 13), Status: StatusDelivered,
			Total: usd(329.99), PaymentMethod: "card", LastFour: "6789",
			Items: []Item{
				{ID: "ITEM022", ProductName: "4K Webcam", Quantity: 1, UnitPrice: usd(329.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD022", CustomerID: "CUST013", OrderDate: day(4, 15), Status: StatusDelivered,
			Total: usd(199.99), PaymentMethod: "card", LastFour: "0123",
			Items: []Item{
				{ID: "ITEM023", ProductName: "Ergonomic Mouse", Quantity: 1, UnitPrice: usd(199.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD023", CustomerID: "CUST014", OrderDate: day(9, 12), Status: StatusDelivered,
			Total: usd(149.99), PaymentMethod: "card", LastFour: "7890",
			Items: []Item{
				{ID: "ITEM024", ProductName: "Wireless Earbuds Pro", Quantity: 1, UnitPrice: usd(149.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
		{ID: "ORD024", CustomerID: "CUST014", OrderDate: day(2, 8), Status: StatusDelivered,
			Total: usd(79.99), PaymentMethod: "card", LastFour: "7890",
			Items: []Item{
				{ID: "ITEM025", ProductName: "Phone Stand with Charger", Quantity: 1, UnitPrice: usd(79.99),
					Condition: ConditionUnopened, FulfillmentStatus: "delivered"},
			}},
	}

	var transactions []Transaction
	for i, o := range orders {
		transactions = append(transactions, Transaction{
			ID:            fmt.Sprintf("TXN%03d", i+1),
			OrderID:       o.ID,
			Type:          "charge",
			Amount:        o.Total,
			Status:        "completed",
			Timestamp:     o.OrderDate.Add(20 * time.Second),
			PaymentMethod: o.PaymentMethod,
			LastFour:      o.LastFour,
		})
	}

	return NewInMemory(customers, orders, transactions)
}
