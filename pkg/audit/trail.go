package audit

import (
	"context"
	"fmt"
)

// Persister receives every chained entry for durable storage.
type Persister interface {
	Persist(ctx context.Context, e *Entry) error
}

// Trail is the default Sink: an in-memory hash chain with optional durable
// persisters and a filesystem artifact store.
type Trail struct {
	chain      *Chain
	artifacts  *ArtifactStore
	persisters []Persister
}

// TrailOption configures a Trail.
type TrailOption func(*Trail)

// WithPersister adds a durable store for chained entries.
func WithPersister(p Persister) TrailOption {
	return func(t *Trail) { t.persisters = append(t.persisters, p) }
}

// WithChain substitutes the backing chain, for tests that need a fixed clock.
func WithChain(c *Chain) TrailOption {
	return func(t *Trail) { t.chain = c }
}

// NewTrail builds a Trail around the given artifact store. artifacts may be
// nil, in which case StoreArtifact fails.
func NewTrail(artifacts *ArtifactStore, opts ...TrailOption) *Trail {
	t := &Trail{
		chain:     NewChain(),
		artifacts: artifacts,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Chain exposes the underlying chain for verification and queries.
func (t *Trail) Chain() *Chain {
	return t.chain
}

// LogDecision appends the decision to the chain and fans it out to every
// persister. A persister failure is returned after the in-memory append so
// the caller can decide whether the operation degrades or fails.
func (t *Trail) LogDecision(ctx context.Context, d Decision) (Entry, error) {
	entry, err := t.chain.Append(d)
	if err != nil {
		return Entry{}, err
	}
	for _, p := range t.persisters {
		if err := p.Persist(ctx, entry); err != nil {
			return *entry, fmt.Errorf("persist decision log entry %s: %w", entry.LogID, err)
		}
	}
	return *entry, nil
}

// StoreArtifact writes content to the artifact store.
func (t *Trail) StoreArtifact(ctx context.Context, sessionID string, kind ArtifactKind, content []byte, metadata map[string]string) (ArtifactRef, error) {
	if t.artifacts == nil {
		return ArtifactRef{}, fmt.Errorf("artifact storage not configured")
	}
	return t.artifacts.Store(ctx, sessionID, kind, content, metadata)
}
