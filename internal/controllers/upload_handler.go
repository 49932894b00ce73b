package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/bionicotaku/lingo-services-uploads/internal/auth"
	"github.com/bionicotaku/lingo-services-uploads/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const (
	// multipartOverhead 为文件之外的 boundary 与文本字段预留空间。
	multipartOverhead = 1 << 20
	// multipartMemory 以内的数据保存在内存，超出部分写入临时文件。
	multipartMemory = 32 << 20
)

// fileFields 按查找顺序列出可接受的文件字段名。
var fileFields = []string{"file", "video"}

// UploadHandler 处理 POST /upload。
type UploadHandler struct {
	*BaseHandler
	svc      *services.UploadService
	maxBytes int64
	log      *log.Helper
}

// NewUploadHandler 构造上传 handler。
func NewUploadHandler(base *BaseHandler, svc *services.UploadService, cfg configloader.UploadConfig, logger log.Logger) *UploadHandler {
	return &UploadHandler{
		BaseHandler: base,
		svc:         svc,
		maxBytes:    cfg.MaxBytes,
		log:         log.NewHelper(logger),
	}
}

// SubmitUpload 接收 multipart 上传，仅在身份中间件解析出 owner 后读取请求体。
func (h *UploadHandler) SubmitUpload(ctx khttp.Context) error {
	khttp.SetOperation(ctx, OperationSubmitUpload)
	handle := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		ownerID, ok := auth.OwnerFromContext(c)
		if !ok {
			return nil, services.ErrUnauthorized
		}

		r := ctx.Request()
		r.Body = http.MaxBytesReader(ctx.Response(), r.Body, h.maxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, multipartError(err)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := formFile(r)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		result, err := h.svc.SubmitUpload(c, services.SubmitUploadInput{
			OwnerID:     ownerID,
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			File:        file,
		})
		if err != nil {
			return nil, err
		}
		return dto.NewSubmitUploadResponse(result), nil
	})

	// 请求 context 的生命周期长于池化的路由 context，后台继续传输时依赖这一点。
	out, err := handle(ctx.Request().Context(), nil)
	if err != nil {
		return err
	}
	resp := out.(*dto.SubmitUploadResponse)
	status := http.StatusOK
	if resp.Pending {
		status = http.StatusAccepted
	}
	return ctx.JSON(status, resp)
}

func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	for _, field := range fileFields {
		file, header, err := r.FormFile(field)
		if err == nil {
			return file, header, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, nil, badRequest("unreadable file part")
		}
	}
	return nil, nil, badRequest("file is required")
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return services.ErrPayloadTooLarge
	}
	return badRequest("malformed multipart body")
}
