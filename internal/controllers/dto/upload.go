// Package dto 定义 HTTP 接口的 JSON 结构及其到服务层输入的转换。
package dto

import (
	"strings"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"
)

// SubmitUploadResponse 为 POST /upload 的响应。
type SubmitUploadResponse struct {
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Pending  bool   `json:"-"`
}

// NewSubmitUploadResponse 描述响应时刻的记录状态。
func NewSubmitUploadResponse(res *services.SubmitUploadResult) *SubmitUploadResponse {
	if res == nil || res.Record == nil {
		return &SubmitUploadResponse{}
	}
	resp := &SubmitUploadResponse{
		UploadID: res.Record.ID.String(),
		Status:   string(res.Record.Status),
		Pending:  res.Pending,
	}
	switch {
	case res.Pending:
		resp.Message = "Upload accepted, processing continues in the background"
	case res.Record.Status == po.UploadStatusCompleted:
		resp.Message = "Upload completed successfully"
	default:
		resp.Message = "Upload initiated successfully"
	}
	return resp
}

// CallbackRequest 为 PUT /internal/videos/{id} 的请求体。
// YouTubeID 作为 ExternalRef 的别名接受。
type CallbackRequest struct {
	ExternalRef *string `json:"externalRef"`
	YouTubeID   *string `json:"youtubeId"`
	Status      string  `json:"status"`
	Progress    *int32  `json:"progress"`
	Error       string  `json:"error"`
}

// ToCallbackInput 将请求转换为服务层输入。
func ToCallbackInput(req *CallbackRequest) services.CallbackInput {
	if req == nil {
		return services.CallbackInput{}
	}
	ref := req.ExternalRef
	if ref == nil || strings.TrimSpace(*ref) == "" {
		ref = req.YouTubeID
	}
	return services.CallbackInput{
		ExternalRef: ref,
		Status:      strings.TrimSpace(req.Status),
		Progress:    req.Progress,
		Reason:      strings.TrimSpace(req.Error),
	}
}

// ErrorResponse 为所有错误响应的消息体。
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
