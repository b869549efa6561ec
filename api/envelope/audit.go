// Package envelope - Envelope logging and audit
package envelope

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// AuditEntry is a log entry for an envelope
type AuditEntry struct {
	InputHash       string `json:"input_hash"`
	RequestID       string `json:"request_id"`
	SchemaChecksum  string `json:"schema_checksum"`
	Envelope        string `json:"envelope_json"`
	TotalPriceCents int64  `json:"total_price_cents,omitempty"`
	Issues          int    `json:"issues,omitempty"`
	DurationMs      int64  `json:"duration_ms,omitempty"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

// AuditLogger logs envelopes for audit and replay
type AuditLogger interface {
	Log(entry AuditEntry) error
}

// ZapAuditLogger writes audit entries as structured log records
type ZapAuditLogger struct {
	Logger *zap.Logger
}

// Log logs an audit entry at info level
func (l *ZapAuditLogger) Log(entry AuditEntry) error {
	l.Logger.Info("quote audit",
		zap.String("request_id", entry.RequestID),
		zap.String("input_hash", entry.InputHash),
		zap.String("schema_checksum", entry.SchemaChecksum),
		zap.String("envelope", entry.Envelope),
		zap.Int64("total_price_cents", entry.TotalPriceCents),
		zap.Int("issues", entry.Issues),
		zap.Int64("duration_ms", entry.DurationMs),
		zap.Bool("success", entry.Success),
		zap.String("error", entry.Error),
	)
	return nil
}

// CreateAuditEntry creates an audit entry from an envelope
func CreateAuditEntry(env *QuoteEnvelope) AuditEntry {
	envJSON, _ := json.Marshal(env)
	return AuditEntry{
		InputHash:      env.InputHash,
		RequestID:      env.RequestID,
		SchemaChecksum: env.SchemaChecksum,
		Envelope:       string(envJSON),
		Success:        true,
	}
}

// Record fills in the outcome of executing the envelope
func (e *AuditEntry) Record(resp *Response) {
	if resp.Rejected() {
		e.Issues = len(resp.Issues)
		return
	}
	e.TotalPriceCents = resp.TotalPriceCents
}

// MarkFailed marks the audit entry as failed
func (e *AuditEntry) MarkFailed(err error) {
	e.Success = false
	e.Error = err.Error()
}

// SetDuration sets the duration
func (e *AuditEntry) SetDuration(d time.Duration) {
	e.DurationMs = d.Milliseconds()
}
