package reaper_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/tasks/reaper"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type staleStoreStub struct {
	mu      sync.Mutex
	records map[uuid.UUID]*po.UploadRecord
	cutoffs []time.Time
}

func newStaleStore(records ...*po.UploadRecord) *staleStoreStub {
	s := &staleStoreStub{records: make(map[uuid.UUID]*po.UploadRecord)}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *staleStoreStub) ListStaleUploading(_ context.Context, cutoff time.Time, limit int32) ([]*po.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	var out []*po.UploadRecord
	for _, r := range s.records {
		if r.Status == po.UploadStatusUploading && r.UpdatedAt.Before(cutoff) {
			out = append(out, r)
			if int32(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *staleStoreStub) Fail(_ context.Context, id uuid.UUID, reason string) (*po.UploadRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	if r.Status != po.UploadStatusUploading {
		return r, errors.New("rejected")
	}
	r.Status = po.UploadStatusFailed
	r.ErrorMessage = &reason
	return r, nil
}

func record(updated time.Time, status po.UploadStatus) *po.UploadRecord {
	return &po.UploadRecord{ID: uuid.New(), OwnerID: uuid.New(), Status: status, UpdatedAt: updated}
}

func TestRunOnceFailsOnlyStaleUploading(t *testing.T) {
	now := time.Now()
	stale := record(now.Add(-2*time.Hour), po.UploadStatusUploading)
	fresh := record(now, po.UploadStatusUploading)
	done := record(now.Add(-2*time.Hour), po.UploadStatusCompleted)
	store := newStaleStore(stale, fresh, done)

	runner, err := reaper.NewRunner(reaper.RunnerParams{
		Store:      store,
		Reconciler: store,
		StaleAfter: 30 * time.Minute,
		Interval:   time.Minute,
		Logger:     log.DefaultLogger,
	})
	require.NoError(t, err)

	count, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, po.UploadStatusFailed, stale.Status)
	require.Equal(t, "upload timed out", *stale.ErrorMessage)
	require.Equal(t, po.UploadStatusUploading, fresh.Status)
	require.Equal(t, po.UploadStatusCompleted, done.Status)
}

func TestRunOncePagesThroughBatches(t *testing.T) {
	old := time.Now().Add(-time.Hour)
	var records []*po.UploadRecord
	for i := 0; i < 5; i++ {
		records = append(records, record(old, po.UploadStatusUploading))
	}
	store := newStaleStore(records...)

	runner, err := reaper.NewRunner(reaper.RunnerParams{
		Store:      store,
		Reconciler: store,
		StaleAfter: time.Minute,
		Interval:   time.Minute,
		BatchSize:  2,
		Logger:     log.DefaultLogger,
	})
	require.NoError(t, err)

	count, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, count)
	for _, r := range records {
		require.Equal(t, po.UploadStatusFailed, r.Status)
	}
}

func TestStartStopsOnStop(t *testing.T) {
	store := newStaleStore()
	runner, err := reaper.NewRunner(reaper.RunnerParams{
		Store:      store,
		Reconciler: store,
		StaleAfter: time.Minute,
		Interval:   10 * time.Millisecond,
		Logger:     log.DefaultLogger,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- runner.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.cutoffs) > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, runner.Stop(context.Background()))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestNewRunnerValidates(t *testing.T) {
	_, err := reaper.NewRunner(reaper.RunnerParams{})
	require.Error(t, err)
}
