package controllers

import (
	"context"
	"net/http"

	"github.com/bionicotaku/lingo-services-uploads/internal/auth"
	"github.com/bionicotaku/lingo-services-uploads/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// UploadQueryHandler 提供面向 owner 的只读路由。
type UploadQueryHandler struct {
	*BaseHandler
	svc *services.UploadQueryService
}

// NewUploadQueryHandler 构造查询 handler。
func NewUploadQueryHandler(base *BaseHandler, svc *services.UploadQueryService) *UploadQueryHandler {
	return &UploadQueryHandler{BaseHandler: base, svc: svc}
}

// ListUploads 处理 GET /videos。
func (h *UploadQueryHandler) ListUploads(ctx khttp.Context) error {
	khttp.SetOperation(ctx, OperationListUploads)
	query := ctx.Query()
	params, err := dto.ParseListParams(query.Get("limit"), query.Get("offset"))
	if err != nil {
		return badRequest(err.Error())
	}
	handle := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		ownerID, _ := auth.OwnerFromContext(c)
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.svc.ListUploads(timeoutCtx, services.ListUploadsInput{
			OwnerID: ownerID,
			Limit:   params.Limit,
			Offset:  params.Offset,
		})
	})
	out, err := handle(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetUpload 处理 GET /videos/{id}。
func (h *UploadQueryHandler) GetUpload(ctx khttp.Context) error {
	khttp.SetOperation(ctx, OperationGetUpload)
	id, err := dto.ParseUploadID(ctx.Vars().Get("id"))
	if err != nil {
		return badRequest(err.Error())
	}
	handle := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		ownerID, ok := auth.OwnerFromContext(c)
		if !ok {
			return nil, services.ErrUnauthorized
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.svc.GetUpload(timeoutCtx, ownerID, id)
	})
	out, err := handle(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetProgress 处理 GET /videos/progress/{uploadId}。
func (h *UploadQueryHandler) GetProgress(ctx khttp.Context) error {
	khttp.SetOperation(ctx, OperationGetProgress)
	id, err := dto.ParseUploadID(ctx.Vars().Get("uploadId"))
	if err != nil {
		return badRequest(err.Error())
	}
	handle := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		ownerID, ok := auth.OwnerFromContext(c)
		if !ok {
			return nil, services.ErrUnauthorized
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.svc.GetProgress(timeoutCtx, ownerID, id)
	})
	out, err := handle(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}
