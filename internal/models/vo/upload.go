// Package vo 定义返回给 API 调用方并推送给进度订阅者的视图对象。
package vo

import (
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/google/uuid"
)

// UploadView 为上传记录面向客户端的结构。
type UploadView struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	ExternalRef *string   `json:"externalRef"`
	Status      string    `json:"status"`
	Progress    int32     `json:"progress"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewUploadView 根据持久化记录构造视图。
func NewUploadView(record *po.UploadRecord) *UploadView {
	if record == nil {
		return nil
	}
	return &UploadView{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		Title:       record.Title,
		Description: record.Description,
		FileName:    record.FileName,
		SizeBytes:   record.SizeBytes,
		ExternalRef: record.ExternalRef,
		Status:      string(record.Status),
		Progress:    record.Progress,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// ProgressView 用于响应轮询客户端。
type ProgressView struct {
	Progress int32  `json:"progress"`
	Status   string `json:"status"`
}

// NewProgressView 提取记录中的轮询字段。
func NewProgressView(record *po.UploadRecord) *ProgressView {
	if record == nil {
		return nil
	}
	return &ProgressView{Progress: record.Progress, Status: string(record.Status)}
}

// ProgressEvent 推送给实时订阅者，不做持久化。
// OwnerID 用于限定投递范围，不会发送给客户端。
type ProgressEvent struct {
	UploadID uuid.UUID `json:"uploadId"`
	OwnerID  uuid.UUID `json:"-"`
	Progress int32     `json:"progress"`
	Status   string    `json:"status"`
}

// NewProgressEvent 将记录快照为事件。
func NewProgressEvent(record *po.UploadRecord) ProgressEvent {
	return ProgressEvent{
		UploadID: record.ID,
		OwnerID:  record.OwnerID,
		Progress: record.Progress,
		Status:   string(record.Status),
	}
}

// OwnerTokens 返回给代 owner 上传的自动化工作流。
type OwnerTokens struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
}
