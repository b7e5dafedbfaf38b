package service

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/clearway-labs/refunddesk/pkg/audit"
)

// FinalizeSessionRequest closes out a conversation: its transcript, optional
// call recording, and a summary of what happened. When Summary carries
// decision "refund_approved" and a refund_id, the derived receipt is archived
// alongside the other artifacts.
type FinalizeSessionRequest struct {
	SessionID   string          `json:"session_id"`
	CustomerID  string          `json:"customer_id,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Transcript  json.RawMessage `json:"transcript,omitempty"`
	AudioBase64 string          `json:"audio_base64,omitempty"`
	Summary     map[string]any  `json:"summary,omitempty"`
}

// StepResult reports one archival step of session finalization. Steps fail
// independently; a failed step does not abort the ones after it.
type StepResult struct {
	Step     string             `json:"step"`
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Artifact *audit.ArtifactRef `json:"artifact,omitempty"`
}

// FinalizeSessionResult reports the per-step outcomes and the closing
// decision-log entry.
type FinalizeSessionResult struct {
	LogID string       `json:"log_id"`
	Steps []StepResult `json:"steps,omitempty"`
}

// FinalizeSession archives the session's byproducts and writes the closing
// decision-log entry. Artifact steps degrade independently and are reported
// per step; the closing audit write is the one step that must succeed —
// session closure without an audit record is not acceptable.
func (s *Service) FinalizeSession(ctx context.Context, req FinalizeSessionRequest) (FinalizeSessionResult, error) {
	ctx, finish := s.track(ctx, "finalizeSession", req.SessionID)

	result, err := s.finalizeSession(ctx, req)
	finish(err)
	if err != nil {
		return FinalizeSessionResult{}, err
	}
	return result, nil
}

func (s *Service) finalizeSession(ctx context.Context, req FinalizeSessionRequest) (FinalizeSessionResult, error) {
	if s.sink == nil {
		return FinalizeSessionResult{}, newFailure(FailureExternal, "audit sink not configured")
	}
	if req.SessionID == "" {
		return FinalizeSessionResult{}, newFailure(FailureValidation, "session_id is required")
	}

	var audio []byte
	if req.AudioBase64 != "" {
		var err error
		audio, err = base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			return FinalizeSessionResult{}, newFailure(FailureValidation, "audio_base64 is not valid base64: %v", err)
		}
	}

	var result FinalizeSessionResult
	meta := map[string]string{"reason": req.Reason}

	if len(req.Transcript) > 0 {
		result.Steps = append(result.Steps,
			s.archiveStep(ctx, "store_transcript", req.SessionID, audit.KindTranscript, req.Transcript, meta))
	}
	if len(audio) > 0 {
		result.Steps = append(result.Steps,
			s.archiveStep(ctx, "store_recording", req.SessionID, audit.KindAudio, audio, meta))
	}
	if content, ok := s.receiptContent(req.Summary); ok {
		result.Steps = append(result.Steps,
			s.archiveStep(ctx, "store_receipt", req.SessionID, audit.KindReceipt, content, meta))
	}

	entry, err := s.logSessionEnd(ctx, req, result.Steps)
	if err != nil {
		return FinalizeSessionResult{}, newFailure(FailureExternal, "write closing decision log: %v", err)
	}
	result.LogID = entry.LogID

	// archive the closing entry itself for offline review
	if exported, err := json.Marshal(entry); err == nil {
		result.Steps = append(result.Steps,
			s.archiveStep(ctx, "store_decision_log", req.SessionID, audit.KindDecisionLog, exported, meta))
	}

	s.logger.InfoContext(ctx, "session finalized",
		"session_id", req.SessionID,
		"steps", len(result.Steps),
		"log_id", entry.LogID,
	)
	return result, nil
}

func (s *Service) archiveStep(ctx context.Context, step, sessionID string, kind audit.ArtifactKind, content []byte, meta map[string]string) StepResult {
	ref, err := s.sink.StoreArtifact(ctx, sessionID, kind, content, meta)
	if err != nil {
		s.logger.WarnContext(ctx, "session artifact write failed",
			"session_id", sessionID,
			"step", step,
			"error", err,
		)
		return StepResult{Step: step, OK: false, Error: err.Error()}
	}
	return StepResult{Step: step, OK: true, Artifact: &ref}
}

// receiptContent re-derives the receipt named by an approved-refund summary.
func (s *Service) receiptContent(summary map[string]any) ([]byte, bool) {
	if summary == nil {
		return nil, false
	}
	decision, _ := summary["decision"].(string)
	refundID, _ := summary["refund_id"].(string)
	if decision != "refund_approved" || refundID == "" {
		return nil, false
	}
	receipt, err := s.executor.GetReceipt(refundID, "")
	if err != nil {
		return nil, false
	}
	content, err := json.Marshal(receipt)
	if err != nil {
		return nil, false
	}
	return content, true
}

func (s *Service) logSessionEnd(ctx context.Context, req FinalizeSessionRequest, steps []StepResult) (audit.Entry, error) {
	artifacts := make([]map[string]any, 0, len(steps))
	for _, step := range steps {
		summary := map[string]any{"step": step.Step, "ok": step.OK}
		if step.Artifact != nil {
			summary["artifact_id"] = step.Artifact.ArtifactID
			summary["artifact_type"] = string(step.Artifact.Kind)
			summary["sha256"] = step.Artifact.SHA256
		}
		artifacts = append(artifacts, summary)
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()
	return s.sink.LogDecision(auditCtx, audit.Decision{
		SessionID:    req.SessionID,
		CustomerID:   req.CustomerID,
		Operation:    "finalizeSession",
		DecisionType: "session_end",
		Inputs: map[string]any{
			"reason":         req.Reason,
			"has_transcript": len(req.Transcript) > 0,
			"has_recording":  req.AudioBase64 != "",
		},
		Outcome: map[string]any{
			"success":   true,
			"summary":   req.Summary,
			"artifacts": artifacts,
		},
	})
}
