package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ArtifactStore persists session byproducts on the filesystem, one
// subdirectory per artifact kind. Writes go to a temp file first and are
// committed with a rename.
type ArtifactStore struct {
	baseDir string
	mu      sync.Mutex
	clock   func() time.Time
}

// ArtifactStoreOption configures an ArtifactStore.
type ArtifactStoreOption func(*ArtifactStore)

// WithArtifactClock overrides the time source, for tests.
func WithArtifactClock(clock func() time.Time) ArtifactStoreOption {
	return func(s *ArtifactStore) { s.clock = clock }
}

// NewArtifactStore creates the artifact directory tree under baseDir.
func NewArtifactStore(baseDir string, opts ...ArtifactStoreOption) (*ArtifactStore, error) {
	s := &ArtifactStore{baseDir: baseDir, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	for _, kind := range []ArtifactKind{KindAudio, KindTranscript, KindDecisionLog, KindReceipt} {
		//nolint:gosec // G301: shared artifact directory
		if err := os.MkdirAll(filepath.Join(baseDir, subdir(kind)), 0755); err != nil {
			return nil, fmt.Errorf("ensure artifact dir: %w", err)
		}
	}
	return s, nil
}

// Store writes content as a new artifact and returns its reference.
func (s *ArtifactStore) Store(ctx context.Context, sessionID string, kind ArtifactKind, content []byte, metadata map[string]string) (ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return ArtifactRef{}, fmt.Errorf("store artifact: %w", err)
	}
	if !validKind(kind) {
		return ArtifactRef{}, fmt.Errorf("unknown artifact kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	id := uuid.New().String()
	name := fmt.Sprintf("%s_%s_%s%s", safeName(sessionID), now.Format("20060102T150405Z"), id[:8], extension(kind))
	path := filepath.Join(s.baseDir, subdir(kind), name)

	data := content
	if kind != KindAudio {
		// JSON kinds get an envelope carrying provenance.
		env := artifactEnvelope{
			ArtifactID: id,
			SessionID:  sessionID,
			Kind:       kind,
			StoredAt:   now,
			Metadata:   metadata,
			Content:    envelopeContent(content),
		}
		var err error
		data, err = json.Marshal(env)
		if err != nil {
			return ArtifactRef{}, fmt.Errorf("serialize artifact envelope: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	//nolint:gosec // G306: artifacts are plain files
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return ArtifactRef{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return ArtifactRef{}, fmt.Errorf("commit artifact: %w", err)
	}

	sum := sha256.Sum256(data)
	return ArtifactRef{
		ArtifactID: id,
		Kind:       kind,
		SessionID:  sessionID,
		Path:       path,
		SHA256:     "sha256:" + hex.EncodeToString(sum[:]),
		SizeBytes:  int64(len(data)),
		StoredAt:   now,
	}, nil
}

type artifactEnvelope struct {
	ArtifactID string            `json:"artifact_id"`
	SessionID  string            `json:"session_id"`
	Kind       ArtifactKind      `json:"artifact_type"`
	StoredAt   time.Time         `json:"stored_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Content    any               `json:"content"`
}

// envelopeContent embeds JSON content as-is and anything else as a string.
func envelopeContent(content []byte) any {
	if json.Valid(content) {
		return json.RawMessage(content)
	}
	return string(content)
}

// Read returns the raw content at a previously returned artifact path.
func (s *ArtifactStore) Read(path string) ([]byte, error) {
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact path %q outside store", path)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path confined to baseDir above
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// safeName restricts a caller-supplied id to filename-safe characters.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}

func validKind(kind ArtifactKind) bool {
	switch kind {
	case KindAudio, KindTranscript, KindDecisionLog, KindReceipt:
		return true
	}
	return false
}

func subdir(kind ArtifactKind) string {
	if kind == KindAudio {
		return "audio"
	}
	return string(kind) + "s"
}

func extension(kind ArtifactKind) string {
	if kind == KindAudio {
		return ".mp3"
	}
	return ".json"
}
