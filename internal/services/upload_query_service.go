package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const maxListLimit = 200

// QueryPolicy 控制查询接口的记录可见范围。
type QueryPolicy struct {
	ListAllOwners bool
}

// NewQueryPolicy 根据配置生成策略。
func NewQueryPolicy(cfg configloader.UploadConfig) QueryPolicy {
	return QueryPolicy{ListAllOwners: cfg.ListAllOwners}
}

// ListUploadsInput 用于分页查询调用方可见的记录。
type ListUploadsInput struct {
	OwnerID uuid.UUID
	Limit   int32
	Offset  int32
}

// UploadQueryService 提供上传记录的只读视图。
type UploadQueryService struct {
	store  UploadStore
	policy QueryPolicy
	log    *log.Helper
}

// NewUploadQueryService 构造查询服务。
func NewUploadQueryService(store UploadStore, policy QueryPolicy, logger log.Logger) *UploadQueryService {
	return &UploadQueryService{
		store:  store,
		policy: policy,
		log:    log.NewHelper(logger),
	}
}

// ListUploads 按时间倒序返回调用方的记录。
func (s *UploadQueryService) ListUploads(ctx context.Context, input ListUploadsInput) ([]*vo.UploadView, error) {
	filter := repositories.ListUploadsInput{Limit: input.Limit, Offset: input.Offset}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if !s.policy.ListAllOwners {
		if input.OwnerID == uuid.Nil {
			return nil, ErrUnauthorized
		}
		owner := input.OwnerID
		filter.OwnerID = &owner
	}

	records, err := s.store.List(ctx, filter)
	if err != nil {
		s.log.WithContext(ctx).Errorf("list uploads failed: owner_id=%s err=%v", input.OwnerID, err)
		return nil, storeUnavailable(fmt.Errorf("list uploads: %w", err))
	}
	views := make([]*vo.UploadView, 0, len(records))
	for _, record := range records {
		views = append(views, vo.NewUploadView(record))
	}
	return views, nil
}

// GetUpload 返回调用方拥有的单条记录。
func (s *UploadQueryService) GetUpload(ctx context.Context, ownerID, uploadID uuid.UUID) (*vo.UploadView, error) {
	record, err := s.load(ctx, ownerID, uploadID)
	if err != nil {
		return nil, err
	}
	return vo.NewUploadView(record), nil
}

// GetProgress 返回调用方某条记录的 {progress, status}。
func (s *UploadQueryService) GetProgress(ctx context.Context, ownerID, uploadID uuid.UUID) (*vo.ProgressView, error) {
	record, err := s.load(ctx, ownerID, uploadID)
	if err != nil {
		return nil, err
	}
	return vo.NewProgressView(record), nil
}

// load 对其他 owner 的记录统一返回 not found。
func (s *UploadQueryService) load(ctx context.Context, ownerID, uploadID uuid.UUID) (*po.UploadRecord, error) {
	record, err := s.store.GetByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return nil, ErrUploadNotFound
		}
		s.log.WithContext(ctx).Errorf("get upload failed: upload_id=%s err=%v", uploadID, err)
		return nil, storeUnavailable(fmt.Errorf("get upload: %w", err))
	}
	if !s.policy.ListAllOwners && record.OwnerID != ownerID {
		return nil, ErrUploadNotFound
	}
	return record, nil
}
