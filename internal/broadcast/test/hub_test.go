package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/broadcast"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func event(uploadID, ownerID uuid.UUID, progress int32) vo.ProgressEvent {
	return vo.ProgressEvent{UploadID: uploadID, OwnerID: ownerID, Progress: progress, Status: "uploading"}
}

func receive(t *testing.T, sub *broadcast.Subscription) vo.ProgressEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return vo.ProgressEvent{}
}

func requireSilent(t *testing.T, sub *broadcast.Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFiltersByOwnerAndUpload(t *testing.T) {
	hub := broadcast.NewHub(configloader.BroadcastConfig{}, nil, log.DefaultLogger)
	owner, other := uuid.New(), uuid.New()
	uploadA, uploadB := uuid.New(), uuid.New()

	all, err := hub.Subscribe(broadcast.Filter{OwnerID: owner})
	require.NoError(t, err)
	onlyA, err := hub.Subscribe(broadcast.Filter{OwnerID: owner, UploadID: uploadA})
	require.NoError(t, err)
	require.Equal(t, 2, hub.SubscriberCount())

	hub.Publish(event(uploadB, owner, 10))
	hub.Publish(event(uploadA, owner, 20))
	hub.Publish(event(uuid.New(), other, 30))

	require.EqualValues(t, 10, receive(t, all).Progress)
	require.EqualValues(t, 20, receive(t, all).Progress)
	requireSilent(t, all)

	require.Equal(t, uploadA, receive(t, onlyA).UploadID)
	requireSilent(t, onlyA)
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := broadcast.NewHub(configloader.BroadcastConfig{SubscriberBuffer: 2}, nil, log.DefaultLogger)
	sub, err := hub.Subscribe(broadcast.Filter{})
	require.NoError(t, err)

	id := uuid.New()
	for i := int32(1); i <= 5; i++ {
		hub.Publish(event(id, uuid.New(), i))
	}

	require.EqualValues(t, 3, hub.Dropped())
	require.EqualValues(t, 1, receive(t, sub).Progress)
	require.EqualValues(t, 2, receive(t, sub).Progress)
}

func TestHubStopClosesSubscriptions(t *testing.T) {
	hub := broadcast.NewHub(configloader.BroadcastConfig{}, nil, log.DefaultLogger)
	sub, err := hub.Subscribe(broadcast.Filter{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- hub.Start(context.Background()) }()

	require.NoError(t, hub.Stop(context.Background()))
	require.NoError(t, <-done)

	_, ok := <-sub.Events()
	require.False(t, ok)
	sub.Close()

	_, err = hub.Subscribe(broadcast.Filter{})
	require.ErrorIs(t, err, broadcast.ErrHubClosed)
	require.NoError(t, hub.Stop(context.Background()))
}

func TestSubscriptionCloseUnregisters(t *testing.T) {
	hub := broadcast.NewHub(configloader.BroadcastConfig{}, nil, log.DefaultLogger)
	sub, err := hub.Subscribe(broadcast.Filter{})
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	require.Zero(t, hub.SubscriberCount())

	hub.Publish(event(uuid.New(), uuid.New(), 1))
	require.Zero(t, hub.Dropped())
}

// gatedRelay 在 release 关闭前挂起所有发布，之后通过 hub 的投递回调回送事件。
type gatedRelay struct {
	ready   chan struct{}
	release chan struct{}
	deliver func(vo.ProgressEvent)
}

func (r *gatedRelay) Run(ctx context.Context, deliver func(vo.ProgressEvent)) error {
	r.deliver = deliver
	close(r.ready)
	<-ctx.Done()
	return ctx.Err()
}

func (r *gatedRelay) Publish(ctx context.Context, ev vo.ProgressEvent) error {
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-r.ready
	r.deliver(ev)
	return nil
}

func TestHubRelayBacklogNeverReordersEvents(t *testing.T) {
	relay := &gatedRelay{ready: make(chan struct{}), release: make(chan struct{})}
	hub := broadcast.NewHub(configloader.BroadcastConfig{SubscriberBuffer: 1}, relay, log.DefaultLogger)
	sub, err := hub.Subscribe(broadcast.Filter{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- hub.Start(ctx) }()

	id, owner := uuid.New(), uuid.New()
	for i := int32(0); i < 7; i++ {
		hub.Publish(event(id, owner, i))
	}
	require.GreaterOrEqual(t, hub.BacklogDropped(), int64(2))
	requireSilent(t, sub)

	close(relay.release)

	var got []int32
collect:
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				break collect
			}
			got = append(got, ev.Progress)
		case <-time.After(200 * time.Millisecond):
			break collect
		}
	}

	require.NotEmpty(t, got)
	require.EqualValues(t, 0, got[0], "first queued event arrives first")
	require.IsIncreasing(t, got)
	require.EqualValues(t, 7, int64(len(got))+hub.Dropped()+hub.BacklogDropped())

	require.NoError(t, hub.Stop(context.Background()))
	require.NoError(t, <-done)
}

func TestRedisRelayFansOutAcrossHubs(t *testing.T) {
	mr := miniredis.RunT(t)
	newRelay := func() *broadcast.RedisRelay {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return broadcast.NewRedisRelay(client, "upload-progress", log.DefaultLogger)
	}

	cfg := configloader.BroadcastConfig{}
	origin := broadcast.NewHub(cfg, newRelay(), log.DefaultLogger)
	replica := broadcast.NewHub(cfg, newRelay(), log.DefaultLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = origin.Start(ctx) }()
	go func() { _ = replica.Start(ctx) }()

	owner := uuid.New()
	local, err := origin.Subscribe(broadcast.Filter{OwnerID: owner})
	require.NoError(t, err)
	remote, err := replica.Subscribe(broadcast.Filter{OwnerID: owner})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("upload-progress")["upload-progress"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	id := uuid.New()
	origin.Publish(event(id, owner, 42))

	got := receive(t, remote)
	require.Equal(t, id, got.UploadID)
	require.Equal(t, owner, got.OwnerID)
	require.EqualValues(t, 42, got.Progress)

	require.Equal(t, id, receive(t, local).UploadID)
	requireSilent(t, local)
}

func TestNewRelayDisabledWithoutAddr(t *testing.T) {
	relay, cleanup, err := broadcast.NewRelay(configloader.BroadcastConfig{}, log.DefaultLogger)
	require.NoError(t, err)
	require.Nil(t, relay)
	cleanup()
}
