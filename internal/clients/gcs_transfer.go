package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
)

// ObjectWriterFunc 为 bucket/object 打开写入器，onProgress 接收已写入的字节数。
type ObjectWriterFunc func(ctx context.Context, bucket, object, contentType string, onProgress func(int64)) io.WriteCloser

// StorageObjectWriter 返回基于 storage client 的 ObjectWriterFunc。
func StorageObjectWriter(client *storage.Client) ObjectWriterFunc {
	return func(ctx context.Context, bucket, object, contentType string, onProgress func(int64)) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = contentType
		w.ProgressFunc = onProgress
		return w
	}
}

// GCSTransfer 将文件作为对象写入 bucket。
type GCSTransfer struct {
	open   ObjectWriterFunc
	bucket string
	prefix string
	log    *log.Helper
}

// NewGCSTransfer 构造对象存储适配器。
func NewGCSTransfer(open ObjectWriterFunc, cfg configloader.GCSConfig, logger log.Logger) (*GCSTransfer, error) {
	switch {
	case open == nil:
		return nil, errors.New("gcs transfer: object writer is required")
	case cfg.Bucket == "":
		return nil, errors.New("gcs transfer: bucket is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "uploads"
	}
	return &GCSTransfer{open: open, bucket: cfg.Bucket, prefix: prefix, log: log.NewHelper(logger)}, nil
}

// Name 实现 services.TransferAdapter。
func (g *GCSTransfer) Name() string { return "gcs" }

// ObjectName 返回上传文件的存储路径：{prefix}/{owner}/{upload}{ext}。
func (g *GCSTransfer) ObjectName(req services.TransferRequest) string {
	ext := strings.ToLower(filepath.Ext(req.FileName))
	return path.Join(g.prefix, req.OwnerID.String(), req.UploadID.String()+ext)
}

// Transfer 写入对象，返回的引用为其 gs:// URI。
func (g *GCSTransfer) Transfer(ctx context.Context, req services.TransferRequest, progress services.ProgressFunc) (*services.TransferResult, error) {
	object := g.ObjectName(req)
	total := int64(len(req.Data))

	// 取消 ctx 会中止写入，Close 随后返回错误。
	w := g.open(ctx, g.bucket, object, req.ContentType, func(written int64) {
		if progress != nil {
			progress(written, total)
		}
	})
	if _, err := io.Copy(w, bytes.NewReader(req.Data)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write gcs object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize gcs object %s: %w", object, err)
	}
	ref := fmt.Sprintf("gs://%s/%s", g.bucket, object)
	g.log.WithContext(ctx).Infof("gcs upload finished: upload_id=%s object=%s", req.UploadID, ref)
	return &services.TransferResult{ExternalRef: ref}, nil
}
