package po

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus 表示上传记录的生命周期状态。
type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

// ParseUploadStatus 将原始值转换为已知状态。
func ParseUploadStatus(raw string) (UploadStatus, bool) {
	switch s := UploadStatus(raw); s {
	case UploadStatusPending, UploadStatusUploading, UploadStatusCompleted, UploadStatusFailed:
		return s, true
	default:
		return "", false
	}
}

// IsTerminal 判断是否已处于不可再迁移的终态。
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// CanTransitionTo 约束状态迁移：pending -> uploading -> {completed|failed}。
func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	switch s {
	case UploadStatusPending:
		return next == UploadStatusUploading
	case UploadStatusUploading:
		return next == UploadStatusCompleted || next == UploadStatusFailed
	default:
		return false
	}
}

const (
	// MaxProgress 为完成时固定的进度值。
	MaxProgress = 100
	// MaxInFlightProgress 为传输未确认前的进度上限。
	MaxInFlightProgress = 99
)

// UploadRecord 对应 uploads.upload_records 表的一行。
type UploadRecord struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Title        string
	Description  string
	FileName     string
	ContentType  *string
	SizeBytes    int64
	ExternalRef  *string
	Status       UploadStatus
	Progress     int32
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
