package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 记录在 uploads_submissions_total 上的提交结果。
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
)

// UploadMetrics 持有协调器记录的指标 instrument。
// nil 的 *UploadMetrics 不记录任何数据。
type UploadMetrics struct {
	submissions metric.Int64Counter
	transfers   metric.Float64Histogram
	progress    metric.Int64Counter
}

// NewUploadMetrics 在 meter 上注册上传相关指标。
func NewUploadMetrics(meter metric.Meter) (*UploadMetrics, error) {
	submissions, err := meter.Int64Counter(
		"uploads_submissions_total",
		metric.WithDescription("Upload submissions by outcome"),
	)
	if err != nil {
		return nil, err
	}
	transfers, err := meter.Float64Histogram(
		"uploads_transfer_duration_seconds",
		metric.WithDescription("Duration of external transfer calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	progress, err := meter.Int64Counter(
		"uploads_progress_updates_total",
		metric.WithDescription("Persisted intermediate progress updates"),
	)
	if err != nil {
		return nil, err
	}
	return &UploadMetrics{submissions: submissions, transfers: transfers, progress: progress}, nil
}

func (m *UploadMetrics) recordSubmission(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *UploadMetrics) recordTransfer(ctx context.Context, adapter, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transfers.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("adapter", adapter),
		attribute.String("outcome", outcome),
	))
}

func (m *UploadMetrics) recordProgress(ctx context.Context) {
	if m == nil {
		return
	}
	m.progress.Add(ctx, 1)
}
