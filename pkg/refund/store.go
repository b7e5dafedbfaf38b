// Package refund implements the refund execution ledger: idempotent creation
// of immutable refund records and pure receipt derivation.
package refund

import (
	"errors"
	"sync"
	"time"

	"github.com/clearway-labs/refunddesk/pkg/catalog"
	"github.com/clearway-labs/refunddesk/pkg/money"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrUnauthorized   = errors.New("order does not belong to customer")
	ErrRefundNotFound = errors.New("refund not found")
	ErrOrderMismatch  = errors.New("order reference does not match refund record")
	ErrReasonRequired = errors.New("refund reason is required")
	ErrDuplicateID    = errors.New("refund id already exists")
)

// Method is the refund disbursement channel.
type Method string

const (
	MethodOriginalPayment Method = "original_payment"
	MethodStoreCredit     Method = "store_credit"
)

// Record is an immutable refund ledger entry. The ledger never mutates a
// record in place, only creates new ones.
type Record struct {
	RefundID      string      `json:"refund_id"`
	OrderRef      string      `json:"order_id"`
	CustomerID    string      `json:"customer_id"`
	Amount        money.Money `json:"amount"`
	Method        Method      `json:"refund_method"`
	Reason        string      `json:"reason"`
	Status        string      `json:"status"`
	ProcessedAt   time.Time   `json:"processed_at"`
	ItemRefs      []string    `json:"item_ids,omitempty"`
	OriginalDate  time.Time   `json:"original_order_date"`
	OriginalTotal money.Money `json:"original_order_total"`
}

// Store persists refund records. Writes are create-only.
type Store interface {
	// Put stores a new record. Storing an id twice is an error.
	Put(rec Record) error
	// Get resolves a refund id, trying the normalized form first.
	Get(refundID string) (Record, bool)
	// Count returns the number of records.
	Count() int
}

// MemoryStore is a mutex-guarded map implementation of Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory refund store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.RefundID]; exists {
		return ErrDuplicateID
	}
	s.records[rec.RefundID] = rec
	return nil
}

func (s *MemoryStore) Get(refundID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[catalog.Normalize(refundID)]; ok {
		return rec, true
	}
	rec, ok := s.records[refundID]
	return rec, ok
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
