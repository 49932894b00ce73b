package services

import (
	"context"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"

	"github.com/google/uuid"
)

// UploadStore 抽象上传记录表的持久化操作，便于脱离 Postgres 测试。
type UploadStore interface {
	Create(ctx context.Context, input repositories.CreateUploadInput) (*po.UploadRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*po.UploadRecord, error)
	List(ctx context.Context, input repositories.ListUploadsInput) ([]*po.UploadRecord, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int32) (*po.UploadRecord, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, externalRef string) (*po.UploadRecord, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*po.UploadRecord, error)
	ListStaleUploading(ctx context.Context, cutoff time.Time, limit int32) ([]*po.UploadRecord, error)
}

// OwnerDirectory 解析已认证用户在传输目标侧的身份。
type OwnerDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*po.Owner, error)
	GetByEmail(ctx context.Context, email string) (*po.Owner, error)
}

// ProgressPublisher 将进度事件分发给实时订阅者，Publish 不得阻塞。
type ProgressPublisher interface {
	Publish(event vo.ProgressEvent)
}

// LifecycleNotifier 向下游系统通知终态记录。
type LifecycleNotifier interface {
	NotifyTerminal(ctx context.Context, record *po.UploadRecord) error
}

// TransferRequest 包含适配器推送单个文件所需的全部信息。
type TransferRequest struct {
	UploadID     uuid.UUID
	OwnerID      uuid.UUID
	OwnerEmail   string
	AccessToken  *string
	RefreshToken *string
	Title        string
	Description  string
	FileName     string
	ContentType  string
	Data         []byte
}

// TransferResult 表示成功交付。Deferred 表示传输目标已接收文件，
// 稍后通过内部回调上报引用。
type TransferResult struct {
	ExternalRef string
	Deferred    bool
}

// ProgressFunc 接收已发送的字节数，total 未知时可为 0。
type ProgressFunc func(sent, total int64)

// TransferAdapter 将文件推送到外部传输目标，只尝试一次，不重试。
type TransferAdapter interface {
	Name() string
	Transfer(ctx context.Context, req TransferRequest, progress ProgressFunc) (*TransferResult, error)
}
