package services

import (
	"net/http"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 返回给客户端的机器可读 reason，配合概要错误信息。
const (
	ReasonInvalidInput     = "UPLOAD_INVALID_INPUT"
	ReasonUnauthorized     = "UNAUTHORIZED"
	ReasonOwnerNotFound    = "OWNER_NOT_FOUND"
	ReasonUnsupportedMedia = "UNSUPPORTED_MEDIA"
	ReasonPayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	ReasonTransferFailed   = "TRANSFER_FAILED"
	ReasonStoreUnavailable = "STORE_UNAVAILABLE"
	ReasonUploadNotFound   = "UPLOAD_NOT_FOUND"
	ReasonStateConflict    = "UPLOAD_STATE_CONFLICT"
)

// 哨兵错误。errors.Is 按 code 与 reason 匹配，
// 因此下方辅助函数可携带更具体的信息而仍能匹配。
var (
	ErrInvalidInput     = kerrors.BadRequest(ReasonInvalidInput, "invalid upload input")
	ErrUnauthorized     = kerrors.Unauthorized(ReasonUnauthorized, "authentication required")
	ErrOwnerNotFound    = kerrors.NotFound(ReasonOwnerNotFound, "owner not found")
	ErrUnsupportedMedia = kerrors.BadRequest(ReasonUnsupportedMedia, "unsupported media type")
	ErrPayloadTooLarge  = kerrors.New(http.StatusRequestEntityTooLarge, ReasonPayloadTooLarge, "file exceeds the upload size limit")
	ErrTransferFailed   = kerrors.New(http.StatusBadGateway, ReasonTransferFailed, "upload to the external sink failed")
	ErrStoreUnavailable = kerrors.ServiceUnavailable(ReasonStoreUnavailable, "upload store unavailable")
	ErrUploadNotFound   = kerrors.NotFound(ReasonUploadNotFound, "upload not found")
	ErrStateConflict    = kerrors.Conflict(ReasonStateConflict, "upload already reached a different terminal state")
)

func invalidInput(msg string) *kerrors.Error {
	return kerrors.BadRequest(ReasonInvalidInput, msg)
}

func unsupportedMedia(msg string) *kerrors.Error {
	return kerrors.BadRequest(ReasonUnsupportedMedia, msg)
}

func storeUnavailable(cause error) *kerrors.Error {
	return kerrors.ServiceUnavailable(ReasonStoreUnavailable, "upload store unavailable").WithCause(cause)
}

func transferFailed(cause error) *kerrors.Error {
	return kerrors.New(http.StatusBadGateway, ReasonTransferFailed, "upload to the external sink failed").WithCause(cause)
}
