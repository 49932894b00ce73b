package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
	reconcileTimeout    = 15 * time.Second
)

// UploadPolicy 限定协调器接受的上传及其回写方式。
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
	Async             bool
	TransferTimeout   time.Duration
	ProgressStep      int32
}

// NewUploadPolicy 根据配置生成策略。
func NewUploadPolicy(cfg configloader.UploadConfig) UploadPolicy {
	return UploadPolicy{
		MaxBytes:          cfg.MaxBytes,
		AllowedExtensions: cfg.AllowedExtensions,
		Async:             cfg.Mode == configloader.ModeAsync,
		TransferTimeout:   cfg.TransferTimeout.Std(),
		ProgressStep:      cfg.ProgressStep,
	}
}

// SubmitUploadInput 表示一次入站上传，File 最多读取 MaxBytes+1 字节。
type SubmitUploadInput struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	FileName    string
	ContentType string
	Size        int64
	File        io.Reader
}

// SubmitUploadResult 返回调用结束时已持久化的记录。
// Pending 表示响应之后仍会继续回写。
type SubmitUploadResult struct {
	Record  *po.UploadRecord
	Pending bool
}

// UploadService 协调上传生命周期：创建记录、委托传输、回写结果并广播进度。
type UploadService struct {
	store      UploadStore
	owners     OwnerDirectory
	adapter    TransferAdapter
	reconciler *Reconciler
	hub        ProgressPublisher
	metrics    *UploadMetrics
	policy     UploadPolicy
	allowed    map[string]struct{}
	log        *log.Helper
	now        func() time.Time

	inflight sync.WaitGroup
}

// NewUploadService 创建 UploadService。
func NewUploadService(
	store UploadStore,
	owners OwnerDirectory,
	adapter TransferAdapter,
	reconciler *Reconciler,
	hub ProgressPublisher,
	metrics *UploadMetrics,
	policy UploadPolicy,
	logger log.Logger,
) (*UploadService, error) {
	switch {
	case store == nil:
		return nil, errors.New("upload service: store is required")
	case owners == nil:
		return nil, errors.New("upload service: owner directory is required")
	case adapter == nil:
		return nil, errors.New("upload service: transfer adapter is required")
	case reconciler == nil:
		return nil, errors.New("upload service: reconciler is required")
	case hub == nil:
		return nil, errors.New("upload service: progress publisher is required")
	case policy.MaxBytes <= 0:
		return nil, errors.New("upload service: max bytes must be positive")
	case policy.TransferTimeout <= 0:
		return nil, errors.New("upload service: transfer timeout must be positive")
	case len(policy.AllowedExtensions) == 0:
		return nil, errors.New("upload service: allowed extensions are required")
	}
	if policy.ProgressStep <= 0 {
		policy.ProgressStep = 1
	}

	allowed := make(map[string]struct{}, len(policy.AllowedExtensions))
	for _, ext := range policy.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &UploadService{
		store:      store,
		owners:     owners,
		adapter:    adapter,
		reconciler: reconciler,
		hub:        hub,
		metrics:    metrics,
		policy:     policy,
		allowed:    allowed,
		log:        log.NewHelper(logger),
		now:        time.Now,
	}, nil
}

// SubmitUpload 校验输入、创建记录并将文件交给传输适配器。
// 校验失败不会创建记录；记录创建后任何失败都会回写到其状态。
func (s *UploadService) SubmitUpload(ctx context.Context, input SubmitUploadInput) (*SubmitUploadResult, error) {
	title, err := s.validateInput(input)
	if err != nil {
		s.metrics.recordSubmission(ctx, OutcomeRejected)
		return nil, err
	}

	data, err := s.readFile(input)
	if err != nil {
		s.metrics.recordSubmission(ctx, OutcomeRejected)
		return nil, err
	}

	owner, err := s.owners.GetByID(ctx, input.OwnerID)
	if err != nil {
		s.metrics.recordSubmission(ctx, OutcomeRejected)
		if errors.Is(err, repositories.ErrOwnerNotFound) {
			return nil, ErrOwnerNotFound
		}
		s.log.WithContext(ctx).Errorf("resolve owner failed: owner_id=%s err=%v", input.OwnerID, err)
		return nil, storeUnavailable(fmt.Errorf("resolve owner: %w", err))
	}

	contentType := s.contentType(input)
	record, err := s.store.Create(ctx, repositories.CreateUploadInput{
		ID:          uuid.New(),
		OwnerID:     owner.ID,
		Title:       title,
		Description: input.Description,
		FileName:    filepath.Base(input.FileName),
		ContentType: &contentType,
		SizeBytes:   int64(len(data)),
	})
	if err != nil {
		s.metrics.recordSubmission(ctx, OutcomeRejected)
		return nil, storeUnavailable(fmt.Errorf("create upload: %w", err))
	}
	s.hub.Publish(vo.NewProgressEvent(record))
	s.log.WithContext(ctx).Infof("upload accepted: upload_id=%s owner_id=%s size=%d adapter=%s", record.ID, owner.ID, record.SizeBytes, s.adapter.Name())

	req := TransferRequest{
		UploadID:     record.ID,
		OwnerID:      owner.ID,
		OwnerEmail:   owner.Email,
		AccessToken:  owner.AccessToken,
		RefreshToken: owner.RefreshToken,
		Title:        record.Title,
		Description:  record.Description,
		FileName:     record.FileName,
		ContentType:  contentType,
		Data:         data,
	}

	// 传输的生命周期长于请求，客户端断开不得取消传输。
	detached := context.WithoutCancel(ctx)

	if s.policy.Async {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			if _, _, err := s.transfer(detached, record, req); err != nil {
				s.log.WithContext(detached).Warnf("background transfer failed: upload_id=%s err=%v", record.ID, err)
			}
		}()
		s.metrics.recordSubmission(ctx, OutcomeAccepted)
		return &SubmitUploadResult{Record: record, Pending: true}, nil
	}

	final, deferred, err := s.transfer(detached, record, req)
	if err != nil {
		s.metrics.recordSubmission(ctx, OutcomeFailed)
		return nil, err
	}
	if deferred {
		s.metrics.recordSubmission(ctx, OutcomeAccepted)
	} else {
		s.metrics.recordSubmission(ctx, OutcomeCompleted)
	}
	return &SubmitUploadResult{Record: final, Pending: deferred}, nil
}

// Start 实现 transport.Server，以便关闭时等待进行中的传输完成。
func (s *UploadService) Start(context.Context) error {
	return nil
}

// Stop 等待后台传输结束，直到 ctx 到期。
func (s *UploadService) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn("stop upload service: in-flight transfers still running")
		return ctx.Err()
	}
}

// transfer 在传输超时内调用适配器，并对结果恰好回写一次。
// 传输目标稍后回调时返回 deferred。
func (s *UploadService) transfer(ctx context.Context, record *po.UploadRecord, req TransferRequest) (*po.UploadRecord, bool, error) {
	tctx, cancel := context.WithTimeout(ctx, s.policy.TransferTimeout)
	defer cancel()

	tracker := newProgressTracker(s, record.ID)
	started := s.now()
	result, err := s.adapter.Transfer(tctx, req, tracker.report)
	tracker.close()
	elapsed := s.now().Sub(started)

	if err == nil && tctx.Err() != nil {
		err = tctx.Err()
	}
	if err == nil && result == nil {
		err = errors.New("adapter returned no result")
	}
	if err == nil && !result.Deferred && strings.TrimSpace(result.ExternalRef) == "" {
		err = errors.New("adapter returned an empty external reference")
	}

	rctx, rcancel := context.WithTimeout(ctx, reconcileTimeout)
	defer rcancel()

	if err != nil {
		s.metrics.recordTransfer(ctx, s.adapter.Name(), OutcomeFailed, elapsed)
		reason := "transfer failed"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded) {
			reason = "transfer timed out"
		}
		s.log.WithContext(ctx).Errorf("transfer failed: upload_id=%s adapter=%s elapsed=%s err=%v", record.ID, s.adapter.Name(), elapsed, err)
		failed, ferr := s.reconciler.Fail(rctx, record.ID, reason)
		if ferr != nil && !errors.Is(ferr, errTransitionRejected) {
			s.log.WithContext(ctx).Errorf("reconcile failure failed: upload_id=%s err=%v", record.ID, ferr)
		}
		return failed, false, transferFailed(err)
	}

	if result.Deferred {
		s.metrics.recordTransfer(ctx, s.adapter.Name(), OutcomeAccepted, elapsed)
		s.log.WithContext(ctx).Infof("transfer handed off, awaiting callback: upload_id=%s adapter=%s", record.ID, s.adapter.Name())
		return record, true, nil
	}

	s.metrics.recordTransfer(ctx, s.adapter.Name(), OutcomeCompleted, elapsed)
	completed, cerr := s.reconciler.Complete(rctx, record.ID, result.ExternalRef)
	if cerr != nil {
		if errors.Is(cerr, errTransitionRejected) && completed != nil {
			// 回调或清理任务先完成了写入，以已存储的状态为准。
			if completed.Status == po.UploadStatusCompleted {
				return completed, false, nil
			}
			s.log.WithContext(ctx).Warnf("transfer succeeded after upload was resolved: upload_id=%s status=%s external_ref=%s", record.ID, completed.Status, result.ExternalRef)
			return completed, false, transferFailed(fmt.Errorf("upload already %s", completed.Status))
		}
		s.log.WithContext(ctx).Errorf("reconcile success failed: upload_id=%s external_ref=%s err=%v", record.ID, result.ExternalRef, cerr)
		return nil, false, cerr
	}
	s.log.WithContext(ctx).Infof("upload completed: upload_id=%s external_ref=%s elapsed=%s", record.ID, completed.ExternalRef, elapsed)
	return completed, false, nil
}

func (s *UploadService) validateInput(input SubmitUploadInput) (string, error) {
	if input.OwnerID == uuid.Nil {
		return "", ErrUnauthorized
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return "", invalidInput("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return "", invalidInput(fmt.Sprintf("title must be at most %d characters", maxTitleRunes))
	}
	if utf8.RuneCountInString(input.Description) > maxDescriptionRunes {
		return "", invalidInput(fmt.Sprintf("description must be at most %d characters", maxDescriptionRunes))
	}
	if input.File == nil {
		return "", invalidInput("file is required")
	}
	ext := strings.ToLower(filepath.Ext(input.FileName))
	if _, ok := s.allowed[ext]; !ok {
		return "", unsupportedMedia(fmt.Sprintf("file type %q is not allowed", ext))
	}
	if input.Size > s.policy.MaxBytes {
		return "", ErrPayloadTooLarge
	}
	return title, nil
}

// readFile 缓存文件内容，使传输不依赖请求体的生命周期。
func (s *UploadService) readFile(input SubmitUploadInput) ([]byte, error) {
	var buf bytes.Buffer
	if input.Size > 0 {
		buf.Grow(int(input.Size))
	}
	n, err := buf.ReadFrom(io.LimitReader(input.File, s.policy.MaxBytes+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrPayloadTooLarge
		}
		return nil, invalidInput("file could not be read").WithCause(err)
	}
	if n > s.policy.MaxBytes {
		return nil, ErrPayloadTooLarge
	}
	if n == 0 {
		return nil, invalidInput("file is empty")
	}
	return buf.Bytes(), nil
}

func (s *UploadService) contentType(input SubmitUploadInput) string {
	if ct := strings.TrimSpace(input.ContentType); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(input.FileName))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// progressTracker 将适配器上报的字节数转换为节流且单调递增的百分比写入。
// close 之后的上报被丢弃。
type progressTracker struct {
	svc    *UploadService
	id     uuid.UUID
	mu     sync.Mutex
	last   int32
	closed bool
}

func newProgressTracker(svc *UploadService, id uuid.UUID) *progressTracker {
	return &progressTracker{svc: svc, id: id}
}

func (t *progressTracker) report(sent, total int64) {
	if total <= 0 || sent <= 0 {
		return
	}
	percent := int32(sent * 100 / total)
	if percent > po.MaxInFlightProgress {
		percent = po.MaxInFlightProgress
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || percent-t.last < t.svc.policy.ProgressStep {
		return
	}
	t.last = percent

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()
	if _, err := t.svc.reconciler.Progress(ctx, t.id, percent); err != nil {
		if !errors.Is(err, errTransitionRejected) {
			t.svc.log.Warnf("persist progress failed: upload_id=%s progress=%d err=%v", t.id, percent, err)
		}
		return
	}
	t.svc.metrics.recordProgress(ctx)
}

func (t *progressTracker) close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}
