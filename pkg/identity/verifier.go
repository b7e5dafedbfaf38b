// Package identity implements the multi-step customer verification state
// machine: order/name match, passcode issuance, passcode confirmation.
//
// Challenge state lives in a mutex-guarded map keyed by normalized customer
// id; expired challenges are reaped lazily on next access, there is no
// background sweep. Verified status is not retained between calls.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/clearway-labs/refunddesk/pkg/catalog"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrChallengeNotFound = errors.New("no active challenge")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrTooManyAttempts   = errors.New("attempt ceiling reached")
	ErrIssueThrottled    = errors.New("challenge issuance throttled")
	ErrCodeRequired      = errors.New("passcode is required")
)

const (
	codeDigits     = 6
	challengeTTL   = 10 * time.Minute
	maxAttempts    = 3
	defaultLimit   = rate.Limit(1.0 / 10) // one issuance per 10s sustained
	defaultBurst   = 5
	expiresMinutes = 10
)

type challenge struct {
	code      string
	method    Method
	contact   string
	issuedAt  time.Time
	expiresAt time.Time
	attempts  int
}

// Verifier drives customers through Unverified → NameMatched →
// ChallengeIssued → Verified.
type Verifier struct {
	mu         sync.Mutex
	catalog    catalog.Catalog
	delivery   Delivery
	challenges map[string]*challenge
	limiters   map[string]*rate.Limiter
	clock      func() time.Time
	issueLimit rate.Limit
	issueBurst int
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(v *Verifier) { v.clock = clock }
}

// WithIssueThrottle overrides the per-customer issuance rate limit.
func WithIssueThrottle(limit rate.Limit, burst int) Option {
	return func(v *Verifier) {
		v.issueLimit = limit
		v.issueBurst = burst
	}
}

// NewVerifier creates a verification state machine over the given catalog
// and passcode delivery collaborator.
func NewVerifier(cat catalog.Catalog, delivery Delivery, opts ...Option) *Verifier {
	v := &Verifier{
		catalog:    cat,
		delivery:   delivery,
		challenges: make(map[string]*challenge),
		limiters:   make(map[string]*rate.Limiter),
		clock:      time.Now,
		issueLimit: defaultLimit,
		issueBurst: defaultBurst,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// MatchResult is the outcome of the order/name match step.
type MatchResult struct {
	Matched      bool   `json:"matched"`
	CustomerID   string `json:"customer_id,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// MatchByOrderAndName resolves the owner of an order and checks the caller's
// claimed name against it. The name compare is trimmed, case-insensitive,
// and exact. On a name mismatch the resolved customer id is withheld.
func (v *Verifier) MatchByOrderAndName(orderRef, name string) (MatchResult, error) {
	owner := v.ownerOfOrder(orderRef)
	if owner == nil {
		return MatchResult{}, ErrOrderNotFound
	}

	claimed := strings.TrimSpace(name)
	if !strings.EqualFold(claimed, strings.TrimSpace(owner.Name)) {
		return MatchResult{Matched: false}, nil
	}

	return MatchResult{
		Matched:      true,
		CustomerID:   owner.ID,
		ContactEmail: owner.Email,
	}, nil
}

// ownerOfOrder finds the customer whose owned-order set contains the
// reference, trying the normalized form first, then the raw form.
func (v *Verifier) ownerOfOrder(orderRef string) *catalog.Customer {
	normalized := catalog.Normalize(orderRef)
	for _, cust := range v.catalog.Customers() {
		for _, owned := range cust.OrderIDs {
			if owned == normalized {
				return cust
			}
		}
	}
	for _, cust := range v.catalog.Customers() {
		for _, owned := range cust.OrderIDs {
			if owned == orderRef {
				return cust
			}
		}
	}
	return nil
}

// IssueResult is the outcome of passcode issuance.
type IssueResult struct {
	Issued           bool   `json:"issued"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
	Method           Method `json:"method"`
	Contact          string `json:"contact"`
	DeliveryWarning  string `json:"delivery_warning,omitempty"`
}

// IssueChallenge generates a fresh passcode for the customer, replacing any
// live challenge, and dispatches it via the delivery collaborator. A
// delivery failure leaves the challenge valid and is reported as a warning.
func (v *Verifier) IssueChallenge(ctx context.Context, customerID string, method Method) (IssueResult, error) {
	cust, ok := v.catalog.Customer(customerID)
	if !ok {
		return IssueResult{}, ErrCustomerNotFound
	}
	if method != MethodSMS {
		method = MethodEmail
	}
	contact := cust.Email
	if method == MethodSMS {
		contact = cust.Phone
	}

	key := catalog.Normalize(cust.ID)

	v.mu.Lock()
	limiter, ok := v.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(v.issueLimit, v.issueBurst)
		v.limiters[key] = limiter
	}
	if !limiter.Allow() {
		v.mu.Unlock()
		return IssueResult{}, ErrIssueThrottled
	}

	code, err := generateCode(codeDigits)
	if err != nil {
		v.mu.Unlock()
		return IssueResult{}, fmt.Errorf("generate passcode: %w", err)
	}
	now := v.clock()
	v.challenges[key] = &challenge{
		code:      code,
		method:    method,
		contact:   contact,
		issuedAt:  now,
		expiresAt: now.Add(challengeTTL),
	}
	v.mu.Unlock()

	result := IssueResult{
		Issued:           true,
		ExpiresInMinutes: expiresMinutes,
		Method:           method,
		Contact:          contact,
	}
	if err := v.delivery.SendCode(ctx, method, contact, code); err != nil {
		// The challenge stays confirmable; the caller is told delivery failed.
		result.DeliveryWarning = fmt.Sprintf("passcode delivery failed: %v", err)
	}
	return result, nil
}

// ConfirmResult is the outcome of a confirmation attempt.
type ConfirmResult struct {
	Verified          bool `json:"verified"`
	AttemptsRemaining int  `json:"attempts_remaining,omitempty"`
}

// ConfirmChallenge checks a passcode against the customer's live challenge.
// Expiry is evaluated here, lazily. The third wrong code deletes the
// challenge and reports the ceiling; a correct code deletes the challenge
// and is the only transition to Verified.
func (v *Verifier) ConfirmChallenge(customerID, code string) (ConfirmResult, error) {
	key := catalog.Normalize(customerID)

	v.mu.Lock()
	defer v.mu.Unlock()

	ch, ok := v.challenges[key]
	if !ok {
		return ConfirmResult{}, ErrChallengeNotFound
	}

	now := v.clock()
	if !now.Before(ch.expiresAt) {
		delete(v.challenges, key)
		return ConfirmResult{}, ErrChallengeExpired
	}

	if ch.attempts >= maxAttempts {
		delete(v.challenges, key)
		return ConfirmResult{}, ErrTooManyAttempts
	}

	if code != ch.code {
		ch.attempts++
		if ch.attempts >= maxAttempts {
			delete(v.challenges, key)
			return ConfirmResult{}, ErrTooManyAttempts
		}
		return ConfirmResult{Verified: false, AttemptsRemaining: maxAttempts - ch.attempts}, nil
	}

	delete(v.challenges, key)
	return ConfirmResult{Verified: true}, nil
}

// LegacyFields are deprecated finalize inputs accepted for caller
// compatibility and explicitly ignored.
type LegacyFields struct {
	Email    string
	Phone    string
	LastFour string
}

// FinalizeResult is the outcome of the composed verification step.
type FinalizeResult struct {
	Verified          bool   `json:"verified"`
	CustomerID        string `json:"customer_id,omitempty"`
	OrderRef          string `json:"order_id,omitempty"`
	AttemptsRemaining int    `json:"attempts_remaining,omitempty"`
}

// Finalize composes the verification flow: resolves the customer (by id if
// given, else by order ownership), requires a passcode, and delegates to
// ConfirmChallenge. On success it returns the verified customer id and the
// normalized order reference, the canonical form downstream components use.
func (v *Verifier) Finalize(orderRef, customerID, code string, _ LegacyFields) (FinalizeResult, error) {
	if strings.TrimSpace(code) == "" {
		return FinalizeResult{}, ErrCodeRequired
	}

	var resolved string
	if customerID != "" {
		cust, ok := v.catalog.Customer(customerID)
		if !ok {
			return FinalizeResult{}, ErrCustomerNotFound
		}
		resolved = cust.ID
	} else {
		owner := v.ownerOfOrder(orderRef)
		if owner == nil {
			return FinalizeResult{}, ErrOrderNotFound
		}
		resolved = owner.ID
	}

	confirm, err := v.ConfirmChallenge(resolved, code)
	if err != nil {
		return FinalizeResult{}, err
	}
	if !confirm.Verified {
		return FinalizeResult{Verified: false, AttemptsRemaining: confirm.AttemptsRemaining}, nil
	}
	return FinalizeResult{
		Verified:   true,
		CustomerID: resolved,
		OrderRef:   catalog.Normalize(orderRef),
	}, nil
}

// ActiveChallenges reports the number of live challenges. Intended for
// operational introspection.
func (v *Verifier) ActiveChallenges() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.challenges)
}

func generateCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
