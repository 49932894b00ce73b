package controllers

import (
	"net/http"

	"github.com/bionicotaku/lingo-services-uploads/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const internalErrorMessage = "internal server error"

// EncodeError 按 kratos 错误携带的状态码输出 {error, reason}，
// 错误原因不会返回给客户端。
func EncodeError(w http.ResponseWriter, r *http.Request, err error) {
	se := kerrors.FromError(err)
	body := dto.ErrorResponse{Error: se.Message, Reason: se.Reason}
	code := int(se.Code)
	if code < http.StatusBadRequest || code >= 600 {
		code = http.StatusInternalServerError
	}
	if code == http.StatusInternalServerError && se.Reason == "" {
		body.Error = internalErrorMessage
	}

	codec, _ := khttp.CodecForRequest(r, "Accept")
	data, mErr := codec.Marshal(body)
	if mErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/"+codec.Name())
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func badRequest(msg string) error {
	return kerrors.BadRequest(services.ReasonInvalidInput, msg)
}
