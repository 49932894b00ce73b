package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// errTransitionRejected 在写入时记录已离开 uploading 状态时返回，同时返回当前记录。
var errTransitionRejected = errors.New("upload is no longer uploading")

// Reconciler 将状态迁移写入存储并广播每次成功的写入。
// 协调器、内部回调 API 与过期清理任务共用它，遵循同一套规则。
type Reconciler struct {
	store    UploadStore
	hub      ProgressPublisher
	notifier LifecycleNotifier
	log      *log.Helper
}

// NewReconciler 构造 Reconciler，notifier 为 nil 时不发送终态通知。
func NewReconciler(store UploadStore, hub ProgressPublisher, notifier LifecycleNotifier, logger log.Logger) (*Reconciler, error) {
	switch {
	case store == nil:
		return nil, errors.New("reconciler: store is required")
	case hub == nil:
		return nil, errors.New("reconciler: progress publisher is required")
	}
	return &Reconciler{
		store:    store,
		hub:      hub,
		notifier: notifier,
		log:      log.NewHelper(logger),
	}, nil
}

// Complete 将 uploading 记录标记为 completed 并写入外部引用。
func (r *Reconciler) Complete(ctx context.Context, id uuid.UUID, externalRef string) (*po.UploadRecord, error) {
	record, err := r.store.MarkCompleted(ctx, id, externalRef)
	if err != nil {
		return r.mapWriteError(ctx, "complete", id, record, err)
	}
	r.announce(ctx, record)
	return record, nil
}

// Fail 将 uploading 记录标记为 failed，保留最后的进度。
func (r *Reconciler) Fail(ctx context.Context, id uuid.UUID, reason string) (*po.UploadRecord, error) {
	record, err := r.store.MarkFailed(ctx, id, reason)
	if err != nil {
		return r.mapWriteError(ctx, "fail", id, record, err)
	}
	r.announce(ctx, record)
	return record, nil
}

// Progress 提升 uploading 记录的进度并广播。
func (r *Reconciler) Progress(ctx context.Context, id uuid.UUID, percent int32) (*po.UploadRecord, error) {
	if percent > po.MaxInFlightProgress {
		percent = po.MaxInFlightProgress
	}
	record, err := r.store.UpdateProgress(ctx, id, percent)
	if err != nil {
		return r.mapWriteError(ctx, "progress", id, record, err)
	}
	r.hub.Publish(vo.NewProgressEvent(record))
	return record, nil
}

func (r *Reconciler) announce(ctx context.Context, record *po.UploadRecord) {
	r.hub.Publish(vo.NewProgressEvent(record))
	if r.notifier == nil || !record.Status.IsTerminal() {
		return
	}
	if err := r.notifier.NotifyTerminal(ctx, record); err != nil {
		r.log.WithContext(ctx).Warnf("terminal notification failed: upload_id=%s status=%s err=%v", record.ID, record.Status, err)
	}
}

func (r *Reconciler) mapWriteError(ctx context.Context, op string, id uuid.UUID, current *po.UploadRecord, err error) (*po.UploadRecord, error) {
	switch {
	case errors.Is(err, repositories.ErrUploadNotFound):
		return nil, ErrUploadNotFound
	case errors.Is(err, repositories.ErrTransitionRejected):
		r.log.WithContext(ctx).Infof("%s ignored: upload_id=%s status=%s", op, id, statusOf(current))
		return current, errTransitionRejected
	default:
		r.log.WithContext(ctx).Errorf("%s upload failed: upload_id=%s err=%v", op, id, err)
		return nil, storeUnavailable(fmt.Errorf("%s upload: %w", op, err))
	}
}

func statusOf(record *po.UploadRecord) po.UploadStatus {
	if record == nil {
		return ""
	}
	return record.Status
}
