package services_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memoryStore 模拟 Postgres 仓储的条件更新语义。
type memoryStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*po.UploadRecord
	progress  []int32
	failWrite error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]*po.UploadRecord)}
}

func (s *memoryStore) Create(_ context.Context, input repositories.CreateUploadInput) (*po.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return nil, s.failWrite
	}
	now := time.Now().UTC()
	record := &po.UploadRecord{
		ID:          input.ID,
		OwnerID:     input.OwnerID,
		Title:       input.Title,
		Description: input.Description,
		FileName:    input.FileName,
		ContentType: input.ContentType,
		SizeBytes:   input.SizeBytes,
		Status:      po.UploadStatusUploading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.records[record.ID] = record
	return clone(record), nil
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*po.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, repositories.ErrUploadNotFound
	}
	return clone(record), nil
}

func (s *memoryStore) List(_ context.Context, input repositories.ListUploadsInput) ([]*po.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*po.UploadRecord
	for _, record := range s.records {
		if input.OwnerID != nil && record.OwnerID != *input.OwnerID {
			continue
		}
		out = append(out, clone(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if input.Limit > 0 && int(input.Limit) < len(out) {
		out = out[:input.Limit]
	}
	return out, nil
}

func (s *memoryStore) guarded(id uuid.UUID, apply func(*po.UploadRecord)) (*po.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite != nil {
		return nil, s.failWrite
	}
	record, ok := s.records[id]
	if !ok {
		return nil, repositories.ErrUploadNotFound
	}
	if record.Status != po.UploadStatusUploading {
		return clone(record), repositories.ErrTransitionRejected
	}
	apply(record)
	record.UpdatedAt = time.Now().UTC()
	return clone(record), nil
}

func (s *memoryStore) UpdateProgress(_ context.Context, id uuid.UUID, progress int32) (*po.UploadRecord, error) {
	return s.guarded(id, func(r *po.UploadRecord) {
		if progress > po.MaxInFlightProgress {
			progress = po.MaxInFlightProgress
		}
		if progress > r.Progress {
			r.Progress = progress
		}
		s.progress = append(s.progress, r.Progress)
	})
}

func (s *memoryStore) MarkCompleted(_ context.Context, id uuid.UUID, externalRef string) (*po.UploadRecord, error) {
	return s.guarded(id, func(r *po.UploadRecord) {
		r.Status = po.UploadStatusCompleted
		r.Progress = po.MaxProgress
		ref := externalRef
		r.ExternalRef = &ref
	})
}

func (s *memoryStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) (*po.UploadRecord, error) {
	return s.guarded(id, func(r *po.UploadRecord) {
		r.Status = po.UploadStatusFailed
		msg := reason
		r.ErrorMessage = &msg
	})
}

func (s *memoryStore) ListStaleUploading(_ context.Context, cutoff time.Time, limit int32) ([]*po.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*po.UploadRecord
	for _, record := range s.records {
		if record.Status == po.UploadStatusUploading && record.UpdatedAt.Before(cutoff) {
			out = append(out, clone(record))
		}
		if limit > 0 && int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memoryStore) only(t *testing.T) *po.UploadRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.records, 1)
	for _, record := range s.records {
		return clone(record)
	}
	return nil
}

func reposList(owner uuid.UUID) repositories.ListUploadsInput {
	return repositories.ListUploadsInput{OwnerID: &owner}
}

func clone(record *po.UploadRecord) *po.UploadRecord {
	cp := *record
	return &cp
}

type ownerStub struct {
	owners map[uuid.UUID]*po.Owner
	err    error
}

func newOwnerStub(owners ...*po.Owner) *ownerStub {
	s := &ownerStub{owners: make(map[uuid.UUID]*po.Owner)}
	for _, o := range owners {
		s.owners[o.ID] = o
	}
	return s
}

func (s *ownerStub) GetByID(_ context.Context, id uuid.UUID) (*po.Owner, error) {
	if s.err != nil {
		return nil, s.err
	}
	owner, ok := s.owners[id]
	if !ok {
		return nil, repositories.ErrOwnerNotFound
	}
	return owner, nil
}

func (s *ownerStub) GetByEmail(_ context.Context, email string) (*po.Owner, error) {
	for _, owner := range s.owners {
		if owner.Email == email {
			return owner, nil
		}
	}
	return nil, repositories.ErrOwnerNotFound
}

func newOwner(email string) *po.Owner {
	access, refresh := "access-"+email, "refresh-"+email
	return &po.Owner{ID: uuid.New(), Email: email, GoogleID: "g-" + email, AccessToken: &access, RefreshToken: &refresh}
}

type recordingHub struct {
	mu     sync.Mutex
	events []vo.ProgressEvent
}

func (h *recordingHub) Publish(event vo.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHub) snapshot(uploadID uuid.UUID) []vo.ProgressEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []vo.ProgressEvent
	for _, e := range h.events {
		if e.UploadID == uploadID {
			out = append(out, e)
		}
	}
	return out
}

type notifierStub struct {
	mu      sync.Mutex
	records []*po.UploadRecord
	err     error
}

func (n *notifierStub) NotifyTerminal(_ context.Context, record *po.UploadRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, clone(record))
	return n.err
}

func (n *notifierStub) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.records)
}

// adapterStub 在每次传输时执行 fn。
type adapterStub struct {
	fn    func(ctx context.Context, req services.TransferRequest, progress services.ProgressFunc) (*services.TransferResult, error)
	mu    sync.Mutex
	calls []services.TransferRequest
}

func (a *adapterStub) Name() string { return "stub" }

func (a *adapterStub) Transfer(ctx context.Context, req services.TransferRequest, progress services.ProgressFunc) (*services.TransferResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, req)
	a.mu.Unlock()
	return a.fn(ctx, req, progress)
}

func succeedWith(ref string) *adapterStub {
	return &adapterStub{fn: func(context.Context, services.TransferRequest, services.ProgressFunc) (*services.TransferResult, error) {
		return &services.TransferResult{ExternalRef: ref}, nil
	}}
}

func failWith(err error) *adapterStub {
	return &adapterStub{fn: func(context.Context, services.TransferRequest, services.ProgressFunc) (*services.TransferResult, error) {
		return nil, err
	}}
}

var errSink = errors.New("sink exploded")

type fixture struct {
	store    *memoryStore
	owners   *ownerStub
	hub      *recordingHub
	notifier *notifierStub
	adapter  *adapterStub
	owner    *po.Owner
	svc      *services.UploadService
	recon    *services.Reconciler
}

func defaultPolicy() services.UploadPolicy {
	return services.UploadPolicy{
		MaxBytes:          1024,
		AllowedExtensions: []string{".mp4", ".avi", ".mov", ".mkv"},
		TransferTimeout:   time.Second,
		ProgressStep:      1,
	}
}

func newFixture(t *testing.T, adapter *adapterStub, policy services.UploadPolicy, metrics *services.UploadMetrics) *fixture {
	t.Helper()
	owner := newOwner("owner@example.com")
	f := &fixture{
		store:    newMemoryStore(),
		owners:   newOwnerStub(owner),
		hub:      &recordingHub{},
		notifier: &notifierStub{},
		adapter:  adapter,
		owner:    owner,
	}
	logger := log.NewStdLogger(io.Discard)
	recon, err := services.NewReconciler(f.store, f.hub, f.notifier, logger)
	require.NoError(t, err)
	f.recon = recon
	svc, err := services.NewUploadService(f.store, f.owners, adapter, recon, f.hub, metrics, policy, logger)
	require.NoError(t, err)
	f.svc = svc
	return f
}
