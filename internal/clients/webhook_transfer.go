package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const maxWebhookResponseBytes = 64 << 10

// WebhookTransfer 以 multipart 表单将文件提交给自动化工作流。
type WebhookTransfer struct {
	client       *khttp.Client
	endpoint     string
	secret       string
	secretHeader string
	deferred     bool
	log          *log.Helper
}

// NewWebhookTransfer 基于 kratos HTTP client 构造 webhook 适配器。
func NewWebhookTransfer(ctx context.Context, cfg configloader.WebhookConfig, timeout time.Duration, logger log.Logger) (*WebhookTransfer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, errors.New("webhook transfer: url is required")
	}
	target, err := url.Parse(cfg.URL)
	if err != nil || target.Host == "" {
		return nil, nil, fmt.Errorf("webhook transfer: invalid url %q", cfg.URL)
	}
	client, err := khttp.NewClient(ctx,
		khttp.WithEndpoint(target.Host),
		khttp.WithTimeout(timeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("webhook transfer: build client: %w", err)
	}
	header := cfg.SecretHeader
	if header == "" {
		header = "X-N8N-Secret"
	}
	cleanup := func() { _ = client.Close() }
	return &WebhookTransfer{
		client:       client,
		endpoint:     cfg.URL,
		secret:       cfg.Secret,
		secretHeader: header,
		deferred:     cfg.AwaitCallback,
		log:          log.NewHelper(logger),
	}, cleanup, nil
}

// Name 实现 services.TransferAdapter。
func (w *WebhookTransfer) Name() string { return "webhook" }

// webhookResponse 兼容工作流返回引用时使用的各种字段名。
type webhookResponse struct {
	ExternalRef string `json:"externalRef"`
	YouTubeID   string `json:"youtubeId"`
	UploadID    string `json:"uploadId"`
}

// Transfer 流式发送 multipart 请求体，并从 JSON 响应中读取引用。
// 任意 2xx 视为成功，兜底使用记录 ID 作为引用。
func (w *WebhookTransfer) Transfer(ctx context.Context, req services.TransferRequest, progress services.ProgressFunc) (*services.TransferResult, error) {
	body, contentType := w.multipartBody(req, progress)
	defer body.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if w.secret != "" {
		httpReq.Header.Set(w.secretHeader, w.secret)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		if se := new(kerrors.Error); errors.As(err, &se) {
			return nil, fmt.Errorf("webhook responded %d: %s", se.Code, se.Message)
		}
		return nil, fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	if w.deferred {
		return &services.TransferResult{Deferred: true}, nil
	}

	var parsed webhookResponse
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			w.log.WithContext(ctx).Warnf("webhook response is not JSON, using upload id as reference: upload_id=%s", req.UploadID)
		}
	}
	ref := firstNonEmpty(parsed.ExternalRef, parsed.YouTubeID, parsed.UploadID, req.UploadID.String())
	return &services.TransferResult{ExternalRef: ref}, nil
}

// multipartBody 通过 pipe 写出表单，避免再次复制文件。
func (w *WebhookTransfer) multipartBody(req services.TransferRequest, progress services.ProgressFunc) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeForm(mw, req, progress)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, req services.TransferRequest, progress services.ProgressFunc) error {
	fields := [][2]string{
		{"title", req.Title},
		{"description", req.Description},
		{"userEmail", req.OwnerEmail},
		{"uploadId", req.UploadID.String()},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.FileName))
	h.Set("Content-Type", req.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, newCountingReader(req.Data, progress))
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
