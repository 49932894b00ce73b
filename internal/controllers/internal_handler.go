package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bionicotaku/lingo-services-uploads/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// InternalHandler 提供自动化回调使用的、受共享密钥保护的路由。
type InternalHandler struct {
	*BaseHandler
	svc *services.CallbackService
}

// NewInternalHandler 构造内部 handler。
func NewInternalHandler(base *BaseHandler, svc *services.CallbackService) *InternalHandler {
	return &InternalHandler{BaseHandler: base, svc: svc}
}

// GetUpload 处理 GET /internal/videos/{id}。
func (h *InternalHandler) GetUpload(ctx khttp.Context) error {
	khttp.SetOperation(ctx, OperationInternalGetUpload)
	handle := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		id, err := dto.ParseUploadID(ctx.Vars().Get("id"))
		if err != nil {
			return nil, badRequest(err.Error())
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.svc.GetUpload(timeoutCtx, id)
	})
	out, err := handle(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetOwnerTokens 处理 GET /internal/owners/by-email/{email}。
func (h *InternalHandler) GetOwnerTokens(ctx khttp.Context) error {
	khttp.SetOperation(ctx, OperationInternalOwnerTokens)
	handle := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		email, err := url.PathUnescape(ctx.Vars().Get("email"))
		if err != nil {
			return nil, badRequest("invalid email")
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.svc.GetOwnerTokens(timeoutCtx, email)
	})
	out, err := handle(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}

// ApplyCallback 处理 PUT /internal/videos/{id}。
func (h *InternalHandler) ApplyCallback(ctx khttp.Context) error {
	khttp.SetOperation(ctx, OperationInternalCallback)
	var req dto.CallbackRequest
	handle := ctx.Middleware(func(c context.Context, in interface{}) (interface{}, error) {
		id, err := dto.ParseUploadID(ctx.Vars().Get("id"))
		if err != nil {
			return nil, badRequest(err.Error())
		}
		if err := ctx.Bind(in); err != nil {
			return nil, badRequest("malformed callback body")
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.ApplyCallback(timeoutCtx, id, dto.ToCallbackInput(in.(*dto.CallbackRequest)))
	})
	out, err := handle(ctx, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, out)
}
