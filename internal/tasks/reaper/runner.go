// Package reaper 将超过过期阈值仍处于 uploading 的记录标记为失败，
// 避免记录无限等待不会再回报的传输。
package reaper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const (
	defaultBatchSize = 100
	staleReason      = "upload timed out"
)

type staleLister interface {
	ListStaleUploading(ctx context.Context, cutoff time.Time, limit int32) ([]*po.UploadRecord, error)
}

type failer interface {
	Fail(ctx context.Context, id uuid.UUID, reason string) (*po.UploadRecord, error)
}

// RunnerParams 注入 Runner 的依赖。
type RunnerParams struct {
	Store      staleLister
	Reconciler failer
	StaleAfter time.Duration
	Interval   time.Duration
	BatchSize  int32
	Logger     log.Logger
}

// Runner 定期清理过期的 uploading 记录。
type Runner struct {
	store      staleLister
	reconciler failer
	staleAfter time.Duration
	interval   time.Duration
	batch      int32
	log        *log.Helper
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRunner 构造清理任务。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("reaper: store is required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reaper: reconciler is required")
	}
	if params.StaleAfter <= 0 || params.Interval <= 0 {
		return nil, fmt.Errorf("reaper: stale_after and interval must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Runner{
		store:      params.Store,
		reconciler: params.Reconciler,
		staleAfter: params.StaleAfter,
		interval:   params.Interval,
		batch:      batch,
		log:        log.NewHelper(params.Logger),
		now:        time.Now,
		stop:       make(chan struct{}),
	}, nil
}

// Start 按间隔执行清理，直到 Stop 或 ctx 取消。
func (r *Runner) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stop:
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.WithContext(ctx).Warnf("reaper sweep failed: %v", err)
			}
		}
	}
}

// Stop 结束清理循环。
func (r *Runner) Stop(context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })
	return nil
}

// RunOnce 将超过过期阈值未更新的记录标记为失败，并返回处理条数。
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.staleAfter)
	reaped := 0
	for {
		records, err := r.store.ListStaleUploading(ctx, cutoff, r.batch)
		if err != nil {
			return reaped, fmt.Errorf("list stale uploads: %w", err)
		}
		progressed := false
		for _, record := range records {
			updated, err := r.reconciler.Fail(ctx, record.ID, staleReason)
			if err != nil {
				// 与传输或回调竞争失败。
				r.log.WithContext(ctx).Debugf("reaper skip: upload_id=%s err=%v", record.ID, err)
				continue
			}
			if updated != nil && updated.Status == po.UploadStatusFailed {
				reaped++
				progressed = true
			}
		}
		if int32(len(records)) < r.batch || !progressed {
			break
		}
	}
	if reaped > 0 {
		r.log.WithContext(ctx).Infof("reaper failed stale uploads: count=%d cutoff=%s", reaped, cutoff.Format(time.RFC3339))
	}
	return reaped, nil
}
