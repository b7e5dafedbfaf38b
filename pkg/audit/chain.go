package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

var (
	ErrEntryNotFound = errors.New("decision log entry not found")
	ErrChainBroken   = errors.New("decision log hash chain is broken")
)

// Entry is a single immutable decision-log entry. Payload holds the
// canonicalized Decision JSON; EntryHash chains over the previous entry.
type Entry struct {
	LogID        string          `json:"log_id"`
	Sequence     uint64          `json:"sequence"`
	Timestamp    time.Time       `json:"timestamp"`
	SessionID    string          `json:"session_id"`
	CustomerID   string          `json:"customer_id"`
	Operation    string          `json:"operation"`
	DecisionType string          `json:"decision_type"`
	Payload      json.RawMessage `json:"payload"`
	PayloadHash  string          `json:"payload_hash"`
	PreviousHash string          `json:"previous_hash"`
	EntryHash    string          `json:"entry_hash"`
}

// Chain is an append-only decision log with hash chaining.
type Chain struct {
	mu        sync.RWMutex
	entries   []*Entry
	entryByID map[string]*Entry
	sequence  uint64
	chainHead string
	clock     func() time.Time
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) ChainOption {
	return func(c *Chain) { c.clock = clock }
}

// NewChain creates an empty decision log chain.
func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{
		entryByID: make(map[string]*Entry),
		chainHead: "genesis",
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append records a decision as a new chained entry. The decision payload is
// canonicalized (RFC 8785) before hashing so logically equal decisions hash
// equal regardless of key order.
func (c *Chain) Append(d Decision) (*Entry, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("serialize decision: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize decision: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sequence++
	entry := &Entry{
		LogID:        uuid.New().String(),
		Sequence:     c.sequence,
		Timestamp:    c.clock().UTC(),
		SessionID:    d.SessionID,
		CustomerID:   d.CustomerID,
		Operation:    d.Operation,
		DecisionType: d.DecisionType,
		Payload:      canonical,
		PayloadHash:  computeHash(canonical),
		PreviousHash: c.chainHead,
	}

	entryHash, err := computeEntryHash(entry)
	if err != nil {
		c.sequence--
		return nil, fmt.Errorf("compute entry hash: %w", err)
	}
	entry.EntryHash = entryHash
	c.chainHead = entry.EntryHash

	c.entries = append(c.entries, entry)
	c.entryByID[entry.LogID] = entry
	return entry, nil
}

// Get retrieves an entry by its log ID.
func (c *Chain) Get(logID string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entryByID[logID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// BySession returns all entries for a session, in append order.
func (c *Chain) BySession(sessionID string) []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Entry
	for _, e := range c.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// Head returns the current chain head hash.
func (c *Chain) Head() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chainHead
}

// Size returns the number of entries in the chain.
func (c *Chain) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Verify walks the chain and recomputes every hash.
func (c *Chain) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expectedPrev := "genesis"
	for i, entry := range c.entries {
		if entry.PreviousHash != expectedPrev {
			return fmt.Errorf("%w: entry %d has previous_hash %s, expected %s",
				ErrChainBroken, i, entry.PreviousHash, expectedPrev)
		}
		if computeHash(entry.Payload) != entry.PayloadHash {
			return fmt.Errorf("%w: entry %d payload hash mismatch", ErrChainBroken, i)
		}
		computed, err := computeEntryHash(entry)
		if err != nil {
			return fmt.Errorf("%w: entry %d hash computation failed: %w", ErrChainBroken, i, err)
		}
		if computed != entry.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch (computed %s, stored %s)",
				ErrChainBroken, i, computed, entry.EntryHash)
		}
		expectedPrev = entry.EntryHash
	}
	return nil
}

func computeHash(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

func computeEntryHash(entry *Entry) (string, error) {
	hashable := struct {
		Sequence     uint64    `json:"sequence"`
		Timestamp    time.Time `json:"timestamp"`
		SessionID    string    `json:"session_id"`
		Operation    string    `json:"operation"`
		DecisionType string    `json:"decision_type"`
		PayloadHash  string    `json:"payload_hash"`
		PreviousHash string    `json:"previous_hash"`
	}{
		Sequence:     entry.Sequence,
		Timestamp:    entry.Timestamp,
		SessionID:    entry.SessionID,
		Operation:    entry.Operation,
		DecisionType: entry.DecisionType,
		PayloadHash:  entry.PayloadHash,
		PreviousHash: entry.PreviousHash,
	}
	data, err := json.Marshal(hashable)
	if err != nil {
		return "", fmt.Errorf("marshal entry for hashing: %w", err)
	}
	return computeHash(data), nil
}
