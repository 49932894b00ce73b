package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUploadNotFound 表示上传记录不存在。
	ErrUploadNotFound = errors.New("upload record not found")
	// ErrTransitionRejected 表示记录存在但已不处于 uploading 状态。
	ErrTransitionRejected = errors.New("upload record is not uploading")
)

const uploadColumns = `id, owner_id, title, description, file_name, content_type, size_bytes,
	external_ref, status::text, progress, error_message, created_at, updated_at`

const (
	insertUploadSQL = `INSERT INTO uploads.upload_records
	(id, owner_id, title, description, file_name, content_type, size_bytes, status, progress)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'uploading', 0)
RETURNING ` + uploadColumns

	getUploadSQL = `SELECT ` + uploadColumns + ` FROM uploads.upload_records WHERE id = $1`

	listUploadsSQL = `SELECT ` + uploadColumns + ` FROM uploads.upload_records
WHERE ($1::uuid IS NULL OR owner_id = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

	updateProgressSQL = `UPDATE uploads.upload_records
SET progress = GREATEST(progress, LEAST($2::int, 99)), updated_at = now()
WHERE id = $1 AND status = 'uploading'
RETURNING ` + uploadColumns

	markCompletedSQL = `UPDATE uploads.upload_records
SET status = 'completed', progress = 100, external_ref = $2, error_message = NULL, updated_at = now()
WHERE id = $1 AND status = 'uploading'
RETURNING ` + uploadColumns

	markFailedSQL = `UPDATE uploads.upload_records
SET status = 'failed', error_message = $2, updated_at = now()
WHERE id = $1 AND status = 'uploading'
RETURNING ` + uploadColumns

	listStaleUploadingSQL = `SELECT ` + uploadColumns + ` FROM uploads.upload_records
WHERE status = 'uploading' AND updated_at < $1
ORDER BY updated_at
LIMIT $2`
)

// UploadRepository 封装 uploads.upload_records 表的访问逻辑。
type UploadRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewUploadRepository 构造 UploadRepository。
func NewUploadRepository(db *pgxpool.Pool, logger log.Logger) *UploadRepository {
	return &UploadRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// CreateUploadInput 描述新建记录所需字段，状态总是从 uploading 开始。
type CreateUploadInput struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Title       string
	Description string
	FileName    string
	ContentType *string
	SizeBytes   int64
}

// Create 插入记录，该写入是一次提交的持久化检查点。
func (r *UploadRepository) Create(ctx context.Context, input CreateUploadInput) (*po.UploadRecord, error) {
	row := r.db.QueryRow(ctx, insertUploadSQL,
		input.ID,
		input.OwnerID,
		input.Title,
		input.Description,
		input.FileName,
		input.ContentType,
		input.SizeBytes,
	)
	record, err := scanUpload(row)
	if err != nil {
		r.log.WithContext(ctx).Errorf("create upload failed: owner_id=%s upload_id=%s err=%v", input.OwnerID, input.ID, err)
		return nil, fmt.Errorf("create upload: %w", err)
	}
	return record, nil
}

// GetByID 查询单条记录。
func (r *UploadRepository) GetByID(ctx context.Context, id uuid.UUID) (*po.UploadRecord, error) {
	record, err := scanUpload(r.db.QueryRow(ctx, getUploadSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		r.log.WithContext(ctx).Errorf("get upload failed: upload_id=%s err=%v", id, err)
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return record, nil
}

// ListUploadsInput 为列表过滤条件，OwnerID 为 nil 时列出所有 owner。
type ListUploadsInput struct {
	OwnerID *uuid.UUID
	Limit   int32
	Offset  int32
}

// List 按创建时间倒序返回记录。
func (r *UploadRepository) List(ctx context.Context, input ListUploadsInput) ([]*po.UploadRecord, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, listUploadsSQL, input.OwnerID, limit, offset)
	if err != nil {
		r.log.WithContext(ctx).Errorf("list uploads failed: err=%v", err)
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return collectUploads(rows)
}

// UpdateProgress 提升 uploading 记录的进度，较小的值被忽略，
// 完成前存储值不超过 99。
func (r *UploadRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int32) (*po.UploadRecord, error) {
	record, err := scanUpload(r.db.QueryRow(ctx, updateProgressSQL, id, progress))
	if err != nil {
		return r.resolveGuardMiss(ctx, "update progress", id, err)
	}
	return record, nil
}

// MarkCompleted 将 uploading 记录标记为 completed 并写入外部引用。
func (r *UploadRepository) MarkCompleted(ctx context.Context, id uuid.UUID, externalRef string) (*po.UploadRecord, error) {
	if externalRef == "" {
		return nil, errors.New("mark completed: external reference is required")
	}
	record, err := scanUpload(r.db.QueryRow(ctx, markCompletedSQL, id, externalRef))
	if err != nil {
		return r.resolveGuardMiss(ctx, "mark completed", id, err)
	}
	return record, nil
}

// MarkFailed 将 uploading 记录标记为 failed，进度保持不变。
func (r *UploadRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*po.UploadRecord, error) {
	var message *string
	if reason != "" {
		message = &reason
	}
	record, err := scanUpload(r.db.QueryRow(ctx, markFailedSQL, id, message))
	if err != nil {
		return r.resolveGuardMiss(ctx, "mark failed", id, err)
	}
	return record, nil
}

// ListStaleUploading 返回自 cutoff 起未更新的 uploading 记录。
func (r *UploadRepository) ListStaleUploading(ctx context.Context, cutoff time.Time, limit int32) ([]*po.UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, listStaleUploadingSQL, cutoff.UTC(), limit)
	if err != nil {
		r.log.WithContext(ctx).Errorf("list stale uploads failed: cutoff=%s err=%v", cutoff, err)
		return nil, fmt.Errorf("list stale uploads: %w", err)
	}
	return collectUploads(rows)
}

// resolveGuardMiss 区分记录不存在与记录已离开 uploading 状态两种情况，
// 后者连同当前记录返回 ErrTransitionRejected。
func (r *UploadRepository) resolveGuardMiss(ctx context.Context, op string, id uuid.UUID, err error) (*po.UploadRecord, error) {
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.WithContext(ctx).Errorf("%s failed: upload_id=%s err=%v", op, id, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return current, ErrTransitionRejected
}

func collectUploads(rows pgx.Rows) ([]*po.UploadRecord, error) {
	defer rows.Close()

	records := make([]*po.UploadRecord, 0)
	for rows.Next() {
		record, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return records, nil
}

func scanUpload(row pgx.Row) (*po.UploadRecord, error) {
	var (
		record po.UploadRecord
		status string
	)
	if err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.Title,
		&record.Description,
		&record.FileName,
		&record.ContentType,
		&record.SizeBytes,
		&record.ExternalRef,
		&status,
		&record.Progress,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	record.Status = po.UploadStatus(status)
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}
