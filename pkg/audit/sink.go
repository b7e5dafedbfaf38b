// Package audit implements the audit sink the refund components write to:
// an append-only, hash-chained decision log (optionally persisted to
// SQLite) and a filesystem artifact store for session byproducts.
//
// The sink is write-only from the core's perspective; components never read
// their own audit writes back. Write failures are returned to the caller,
// never swallowed.
package audit

import (
	"context"
	"time"
)

// ArtifactKind categorizes stored session byproducts.
type ArtifactKind string

const (
	KindAudio       ArtifactKind = "audio"
	KindTranscript  ArtifactKind = "transcript"
	KindDecisionLog ArtifactKind = "decision_log"
	KindReceipt     ArtifactKind = "receipt"
)

// Decision is one decision-log write: caller identity, operation inputs,
// check results, and outcome.
type Decision struct {
	SessionID    string         `json:"session_id"`
	CustomerID   string         `json:"customer_id"`
	Operation    string         `json:"operation"`
	DecisionType string         `json:"decision_type"`
	Inputs       map[string]any `json:"inputs,omitempty"`
	PolicyChecks any            `json:"policy_checks,omitempty"`
	Outcome      map[string]any `json:"outcome,omitempty"`
	ToolCalls    any            `json:"tool_calls,omitempty"`
}

// ArtifactRef describes a stored artifact.
type ArtifactRef struct {
	ArtifactID string       `json:"artifact_id"`
	Kind       ArtifactKind `json:"artifact_type"`
	SessionID  string       `json:"session_id"`
	Path       string       `json:"path"`
	SHA256     string       `json:"sha256"`
	SizeBytes  int64        `json:"size_bytes"`
	StoredAt   time.Time    `json:"stored_at"`
}

// Sink receives decision-log and artifact writes from the core components.
type Sink interface {
	LogDecision(ctx context.Context, d Decision) (Entry, error)
	StoreArtifact(ctx context.Context, sessionID string, kind ArtifactKind, content []byte, metadata map[string]string) (ArtifactRef, error)
}
