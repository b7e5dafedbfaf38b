package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/clearway-labs/refunddesk/pkg/audit"
	"github.com/clearway-labs/refunddesk/pkg/catalog"
	"github.com/clearway-labs/refunddesk/pkg/identity"
	"github.com/clearway-labs/refunddesk/pkg/money"
	"github.com/clearway-labs/refunddesk/pkg/policy"
	"github.com/clearway-labs/refunddesk/pkg/refund"
)

var evalTime = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

type captureDelivery struct {
	mu       sync.Mutex
	lastCode string
}

func (d *captureDelivery) SendCode(_ context.Context, _ identity.Method, _ string, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastCode = code
	return nil
}

func (d *captureDelivery) code() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCode
}

func fixtureCatalog() catalog.Catalog {
	customers := []*catalog.Customer{
		{
			ID:       "CUST001",
			Name:     "Michael Chen",
			Email:    "michael.chen@example.com",
			Phone:    "+14155557001",
			OrderIDs: []string{"ORD004", "ORD005"},
		},
	}
	orders := []*catalog.Order{
		{
			ID:         "ORD004",
			CustomerID: "CUST001",
			OrderDate:  evalTime.AddDate(0, 0, -10),
			Status:     catalog.StatusDelivered,
			Total:      money.FromFloat(199.99, "USD"),
			Items: []catalog.Item{
				{
					ID:          "ITEM401",
					ProductName: "Bluetooth Speaker",
					Quantity:    1,
					UnitPrice:   money.FromFloat(199.99, "USD"),
					Condition:   catalog.ConditionUnopened,
				},
			},
			PaymentMethod: "credit_card",
			LastFour:      "4242",
		},
		{
			ID:         "ORD005",
			CustomerID: "CUST001",
			OrderDate:  evalTime.AddDate(0, 0, -45),
			Status:     catalog.StatusDelivered,
			Total:      money.FromFloat(59.99, "USD"),
			Items: []catalog.Item{
				{
					ID:          "ITEM501",
					ProductName: "Desk Lamp",
					Quantity:    1,
					UnitPrice:   money.FromFloat(59.99, "USD"),
					Condition:   catalog.ConditionUnopened,
				},
			},
			PaymentMethod: "credit_card",
			LastFour:      "4242",
		},
	}
	transactions := []catalog.Transaction{
		{ID: "TXN004", OrderID: "ORD004", Amount: money.FromFloat(199.99, "USD"), Type: "charge", Status: "completed", Timestamp: evalTime.AddDate(0, 0, -10)},
	}
	return catalog.NewInMemory(customers, orders, transactions)
}

type fixture struct {
	svc      *Service
	delivery *captureDelivery
	trail    *audit.Trail
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cat := fixtureCatalog()
	clock := &fakeClock{now: evalTime}
	delivery := &captureDelivery{}

	verifier := identity.NewVerifier(cat, delivery,
		identity.WithClock(clock.Now),
		identity.WithIssueThrottle(rate.Inf, 0),
	)
	engine := policy.NewEngine(cat, policy.Default(), policy.WithClock(clock.Now))
	executor := refund.NewExecutor(cat, refund.NewMemoryStore(), refund.WithClock(clock.Now))

	artifacts, err := audit.NewArtifactStore(t.TempDir())
	require.NoError(t, err)
	trail := audit.NewTrail(artifacts)

	svc := New(cat, verifier, engine, executor, append([]Option{WithSink(trail)}, opts...)...)
	return &fixture{svc: svc, delivery: delivery, trail: trail, clock: clock}
}

func TestRefundFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const session = "sess-e2e"

	match, err := f.svc.MatchCustomer(ctx, MatchCustomerRequest{
		SessionID: session, OrderRef: "ORD-004", CustomerName: "michael chen",
	})
	require.NoError(t, err)
	require.True(t, match.Matched)
	assert.Equal(t, "CUST001", match.CustomerID)

	issue, err := f.svc.SendPasscode(ctx, SendPasscodeRequest{
		SessionID: session, CustomerID: match.CustomerID, Method: identity.MethodEmail,
	})
	require.NoError(t, err)
	require.True(t, issue.Issued)
	assert.Equal(t, 10, issue.ExpiresInMinutes)

	verified, err := f.svc.VerifyIdentity(ctx, VerifyIdentityRequest{
		SessionID: session, OrderRef: "ORD-004", CustomerID: match.CustomerID, Code: f.delivery.code(),
	})
	require.NoError(t, err)
	require.True(t, verified.Verified)
	assert.Equal(t, "ORD004", verified.OrderRef)

	verdict, err := f.svc.CheckEligibility(ctx, CheckEligibilityRequest{
		SessionID: session, OrderRef: verified.OrderRef, CustomerID: verified.CustomerID, Reason: "changed my mind",
	})
	require.NoError(t, err)
	require.True(t, verdict.Eligible)
	assert.Equal(t, policy.ActionFullRefund, verdict.SuggestedAction)
	assert.InDelta(t, 199.99, verdict.TotalRefund.Float64(), 0.001)

	executed, err := f.svc.ExecuteRefund(ctx, ExecuteRefundRequest{
		SessionID: session, OrderRef: verified.OrderRef, CustomerID: verified.CustomerID, Reason: "changed my mind",
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", executed.Record.Status)
	assert.InDelta(t, 199.99, executed.Record.Amount.Float64(), 0.001)

	receipt, err := f.svc.GetReceipt(ctx, GetReceiptRequest{
		SessionID: session, RefundID: executed.Record.RefundID, OrderRef: "ORD004",
	})
	require.NoError(t, err)
	assert.Equal(t, executed.Receipt, receipt.Receipt)
	assert.Equal(t, "RCPT-"+executed.Record.RefundID, receipt.ReferenceNumber)
	assert.Empty(t, receipt.AuditWarning)

	closed, err := f.svc.FinalizeSession(ctx, FinalizeSessionRequest{
		SessionID:  session,
		CustomerID: verified.CustomerID,
		Reason:     "resolved",
		Transcript: []byte(`{"turns":[]}`),
		Summary:    map[string]any{"decision": "refund_approved", "refund_id": executed.Record.RefundID},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, closed.LogID)
	require.Len(t, closed.Steps, 3)
	assert.Equal(t, "store_transcript", closed.Steps[0].Step)
	assert.Equal(t, "store_receipt", closed.Steps[1].Step)
	assert.Equal(t, "store_decision_log", closed.Steps[2].Step)
	for _, step := range closed.Steps {
		assert.True(t, step.OK)
		require.NotNil(t, step.Artifact)
	}
	assert.Equal(t, audit.KindReceipt, closed.Steps[1].Artifact.Kind)

	// every operation left a chained decision entry
	entries := f.trail.Chain().BySession(session)
	require.Len(t, entries, 7)
	assert.Equal(t, "matchCustomer", entries[0].Operation)
	assert.Equal(t, "finalizeSession", entries[6].Operation)
	require.NoError(t, f.trail.Chain().Verify())
}

func TestFailureKinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.svc.MatchCustomer(ctx, MatchCustomerRequest{
			SessionID: "s", OrderRef: "ORD999", CustomerName: "Michael Chen",
		})
		require.Error(t, err)
		assert.Equal(t, FailureNotFound, KindOf(err))
		assert.ErrorIs(t, err, identity.ErrOrderNotFound)
	})

	t.Run("name mismatch withholds id", func(t *testing.T) {
		match, err := f.svc.MatchCustomer(ctx, MatchCustomerRequest{
			SessionID: "s", OrderRef: "ORD004", CustomerName: "Someone Else",
		})
		require.NoError(t, err)
		assert.False(t, match.Matched)
		assert.Empty(t, match.CustomerID)
	})

	t.Run("wrong customer on eligibility", func(t *testing.T) {
		_, err := f.svc.CheckEligibility(ctx, CheckEligibilityRequest{
			SessionID: "s", OrderRef: "ORD004", CustomerID: "CUST999",
		})
		require.Error(t, err)
		assert.Equal(t, FailureUnauthorized, KindOf(err))
	})

	t.Run("missing reason on execute", func(t *testing.T) {
		_, err := f.svc.ExecuteRefund(ctx, ExecuteRefundRequest{
			SessionID: "s", OrderRef: "ORD004", CustomerID: "CUST001",
		})
		require.Error(t, err)
		assert.Equal(t, FailureValidation, KindOf(err))
	})

	t.Run("receipt cross-check mismatch", func(t *testing.T) {
		executed, err := f.svc.ExecuteRefund(ctx, ExecuteRefundRequest{
			SessionID: "s", OrderRef: "ORD004", CustomerID: "CUST001", Reason: "damaged",
		})
		require.NoError(t, err)
		_, err = f.svc.GetReceipt(ctx, GetReceiptRequest{
			SessionID: "s", RefundID: executed.Record.RefundID, OrderRef: "ORD005",
		})
		require.Error(t, err)
		assert.Equal(t, FailureMismatch, KindOf(err))
	})

	t.Run("unknown refund", func(t *testing.T) {
		_, err := f.svc.GetReceipt(ctx, GetReceiptRequest{SessionID: "s", RefundID: "REFNOPE"})
		require.Error(t, err)
		assert.Equal(t, FailureNotFound, KindOf(err))
	})
}

func TestPasscodeFailureKinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendPasscode(ctx, SendPasscodeRequest{
		SessionID: "s", CustomerID: "CUST001", Method: identity.MethodEmail,
	})
	require.NoError(t, err)

	t.Run("three wrong codes rate-limit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			res, err := f.svc.ConfirmPasscode(ctx, ConfirmPasscodeRequest{
				SessionID: "s", CustomerID: "CUST001", Code: "000000",
			})
			require.NoError(t, err)
			assert.False(t, res.Verified)
		}
		_, err := f.svc.ConfirmPasscode(ctx, ConfirmPasscodeRequest{
			SessionID: "s", CustomerID: "CUST001", Code: "000000",
		})
		require.Error(t, err)
		assert.Equal(t, FailureRateLimited, KindOf(err))
	})

	t.Run("challenge consumed after ceiling", func(t *testing.T) {
		_, err := f.svc.ConfirmPasscode(ctx, ConfirmPasscodeRequest{
			SessionID: "s", CustomerID: "CUST001", Code: "000000",
		})
		require.Error(t, err)
		assert.Equal(t, FailureNotFound, KindOf(err))
	})
}

func TestPasscodeExpiryKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendPasscode(ctx, SendPasscodeRequest{
		SessionID: "s", CustomerID: "CUST001", Method: identity.MethodEmail,
	})
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.ConfirmPasscode(ctx, ConfirmPasscodeRequest{
		SessionID: "s", CustomerID: "CUST001", Code: f.delivery.code(),
	})
	require.Error(t, err)
	assert.Equal(t, FailureExpired, KindOf(err))
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ListOrders(ctx, ListOrdersRequest{SessionID: "s", CustomerID: "CUST-001"})
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "ORD004", res.Orders[0].ID) // newest first

	limited, err := f.svc.ListOrders(ctx, ListOrdersRequest{SessionID: "s", CustomerID: "CUST001", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Orders, 1)

	single, err := f.svc.ListOrders(ctx, ListOrdersRequest{SessionID: "s", CustomerID: "CUST001", OrderRef: "ORD-005"})
	require.NoError(t, err)
	require.Len(t, single.Orders, 1)
	assert.Equal(t, "ORD005", single.Orders[0].ID)

	_, err = f.svc.ListOrders(ctx, ListOrdersRequest{SessionID: "s", CustomerID: "CUST999"})
	require.Error(t, err)
	assert.Equal(t, FailureNotFound, KindOf(err))
}

func TestListTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ListTransactions(ctx, ListTransactionsRequest{
		SessionID: "s", OrderRef: "ORD-004", CustomerID: "CUST-001",
	})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "TXN004", res.Transactions[0].ID)
	assert.Equal(t, 1, res.Count)

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.svc.ListTransactions(ctx, ListTransactionsRequest{
			SessionID: "s", OrderRef: "ORD999", CustomerID: "CUST001",
		})
		require.Error(t, err)
		assert.Equal(t, FailureNotFound, KindOf(err))
	})

	t.Run("order owned by someone else", func(t *testing.T) {
		_, err := f.svc.ListTransactions(ctx, ListTransactionsRequest{
			SessionID: "s", OrderRef: "ORD004", CustomerID: "CUST002",
		})
		require.Error(t, err)
		assert.Equal(t, FailureUnauthorized, KindOf(err))
	})

	t.Run("missing customer id", func(t *testing.T) {
		_, err := f.svc.ListTransactions(ctx, ListTransactionsRequest{
			SessionID: "s", OrderRef: "ORD004",
		})
		require.Error(t, err)
		assert.Equal(t, FailureUnauthorized, KindOf(err))
	})
}

type failingSink struct{}

func (failingSink) LogDecision(context.Context, audit.Decision) (audit.Entry, error) {
	return audit.Entry{}, errors.New("sink unavailable")
}

func (failingSink) StoreArtifact(context.Context, string, audit.ArtifactKind, []byte, map[string]string) (audit.ArtifactRef, error) {
	return audit.ArtifactRef{}, errors.New("sink unavailable")
}

func TestAuditFailureDegradesToWarning(t *testing.T) {
	cat := fixtureCatalog()
	clock := &fakeClock{now: evalTime}
	verifier := identity.NewVerifier(cat, &captureDelivery{}, identity.WithClock(clock.Now))
	engine := policy.NewEngine(cat, policy.Default(), policy.WithClock(clock.Now))
	executor := refund.NewExecutor(cat, refund.NewMemoryStore(), refund.WithClock(clock.Now))
	svc := New(cat, verifier, engine, executor, WithSink(failingSink{}))

	// the lookup itself still succeeds, with the audit failure on the result
	verdict, err := svc.CheckEligibility(context.Background(), CheckEligibilityRequest{
		SessionID: "s", OrderRef: "ORD004", CustomerID: "CUST001",
	})
	require.NoError(t, err)
	assert.True(t, verdict.Eligible)
	assert.Contains(t, verdict.AuditWarning, "decision log write failed")

	orders, err := svc.ListOrders(context.Background(), ListOrdersRequest{
		SessionID: "s", CustomerID: "CUST001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, orders.AuditWarning)

	// but session closure must not succeed without an audit record
	_, err = svc.FinalizeSession(context.Background(), FinalizeSessionRequest{SessionID: "s"})
	require.Error(t, err)
	assert.Equal(t, FailureExternal, KindOf(err))
}

func TestFinalizeSessionValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FinalizeSession(context.Background(), FinalizeSessionRequest{})
	require.Error(t, err)
	assert.Equal(t, FailureValidation, KindOf(err))

	_, err = f.svc.FinalizeSession(context.Background(), FinalizeSessionRequest{
		SessionID:   "s",
		AudioBase64: "not-base64!!!",
	})
	require.Error(t, err)
	assert.Equal(t, FailureValidation, KindOf(err))
}

func TestFinalizeSessionStoresRecording(t *testing.T) {
	f := newFixture(t)

	audio := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xFB, 0x90, 0x00})
	res, err := f.svc.FinalizeSession(context.Background(), FinalizeSessionRequest{
		SessionID:   "sess-audio",
		Transcript:  []byte(`{"turns":[{"speaker":"caller","text":"hi"}]}`),
		AudioBase64: audio,
	})
	require.NoError(t, err)
	require.Len(t, res.Steps, 3)
	require.NotNil(t, res.Steps[0].Artifact)
	require.NotNil(t, res.Steps[1].Artifact)
	assert.Equal(t, audit.KindTranscript, res.Steps[0].Artifact.Kind)
	assert.Equal(t, audit.KindAudio, res.Steps[1].Artifact.Kind)
	assert.Equal(t, "store_decision_log", res.Steps[2].Step)
}

// Artifact failures are reported per step; the closing log still lands.
func TestFinalizeSessionReportsFailedSteps(t *testing.T) {
	cat := fixtureCatalog()
	clock := &fakeClock{now: evalTime}
	verifier := identity.NewVerifier(cat, &captureDelivery{}, identity.WithClock(clock.Now))
	engine := policy.NewEngine(cat, policy.Default(), policy.WithClock(clock.Now))
	executor := refund.NewExecutor(cat, refund.NewMemoryStore(), refund.WithClock(clock.Now))
	trail := audit.NewTrail(nil)
	svc := New(cat, verifier, engine, executor, WithSink(trail))

	// no artifact store behind the trail, so every archive step fails
	res, err := svc.FinalizeSession(context.Background(), FinalizeSessionRequest{
		SessionID:  "sess-degraded",
		Transcript: []byte(`{"turns":[]}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.LogID)
	require.Len(t, res.Steps, 2)
	assert.False(t, res.Steps[0].OK)
	assert.NotEmpty(t, res.Steps[0].Error)
	assert.False(t, res.Steps[1].OK)
}
