package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// CallbackInput 为外部传输目标的回写报告，仅上报进度时 Status 可为空。
type CallbackInput struct {
	ExternalRef *string
	Status      string
	Progress    *int32
	Reason      string
}

// CallbackService 提供自动化工作流使用的内部 API。
type CallbackService struct {
	store      UploadStore
	owners     OwnerDirectory
	reconciler *Reconciler
	log        *log.Helper
}

// NewCallbackService 构造内部回调服务。
func NewCallbackService(store UploadStore, owners OwnerDirectory, reconciler *Reconciler, logger log.Logger) *CallbackService {
	return &CallbackService{
		store:      store,
		owners:     owners,
		reconciler: reconciler,
		log:        log.NewHelper(logger),
	}
}

// GetUpload 返回完整记录，不限定 owner。
func (s *CallbackService) GetUpload(ctx context.Context, id uuid.UUID) (*vo.UploadView, error) {
	record, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, storeUnavailable(fmt.Errorf("get upload: %w", err))
	}
	return vo.NewUploadView(record), nil
}

// GetOwnerTokens 返回指定邮箱 owner 存储的 OAuth token。
func (s *CallbackService) GetOwnerTokens(ctx context.Context, email string) (*vo.OwnerTokens, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalidInput("email is required")
	}
	owner, err := s.owners.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrOwnerNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, storeUnavailable(fmt.Errorf("get owner by email: %w", err))
	}
	return &vo.OwnerTokens{AccessToken: owner.AccessToken, RefreshToken: owner.RefreshToken}, nil
}

// ApplyCallback 按协调器的状态迁移规则回写传输结果。
// 终态记录接受完全相同的重复上报，拒绝其他变更。
func (s *CallbackService) ApplyCallback(ctx context.Context, id uuid.UUID, input CallbackInput) (*vo.UploadView, error) {
	if input.Progress != nil && (*input.Progress < 0 || *input.Progress > po.MaxProgress) {
		return nil, invalidInput("progress must be between 0 and 100")
	}

	status := po.UploadStatusUploading
	if raw := strings.ToLower(strings.TrimSpace(input.Status)); raw != "" {
		parsed, ok := po.ParseUploadStatus(raw)
		if !ok {
			return nil, invalidInput(fmt.Sprintf("unknown status %q", input.Status))
		}
		status = parsed
	}

	var (
		record *po.UploadRecord
		err    error
	)
	switch status {
	case po.UploadStatusCompleted:
		ref := ""
		if input.ExternalRef != nil {
			ref = strings.TrimSpace(*input.ExternalRef)
		}
		if ref == "" {
			return nil, invalidInput("externalRef is required when status is completed")
		}
		record, err = s.reconciler.Complete(ctx, id, ref)
		if errors.Is(err, errTransitionRejected) && record != nil &&
			record.Status == po.UploadStatusCompleted && record.ExternalRef != nil && *record.ExternalRef == ref {
			err = nil
		}
	case po.UploadStatusFailed:
		reason := strings.TrimSpace(input.Reason)
		if reason == "" {
			reason = "reported failed by sink"
		}
		record, err = s.reconciler.Fail(ctx, id, reason)
		if errors.Is(err, errTransitionRejected) && record != nil && record.Status == po.UploadStatusFailed {
			err = nil
		}
	case po.UploadStatusUploading:
		if input.Progress == nil {
			return nil, invalidInput("progress is required when status is uploading")
		}
		record, err = s.reconciler.Progress(ctx, id, *input.Progress)
	default:
		return nil, invalidInput(fmt.Sprintf("status %q cannot be reported", status))
	}

	if err != nil {
		if errors.Is(err, errTransitionRejected) {
			s.log.WithContext(ctx).Warnf("callback rejected: upload_id=%s requested=%s current=%s", id, status, statusOf(record))
			return nil, ErrStateConflict
		}
		return nil, err
	}
	s.log.WithContext(ctx).Infof("callback applied: upload_id=%s status=%s progress=%d", id, record.Status, record.Progress)
	return vo.NewUploadView(record), nil
}
