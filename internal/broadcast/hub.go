// Package broadcast 将进度事件分发给已连接的浏览器会话。
// 投递语义为至多一次，且不会阻塞发布方。
package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrHubClosed 在 Stop 之后由 Subscribe 返回。
var ErrHubClosed = errors.New("broadcast hub closed")

const defaultBuffer = 16

// Relay 在副本之间传递事件，从 relay 收到的事件只投递给本地订阅者。
type Relay interface {
	Publish(ctx context.Context, event vo.ProgressEvent) error
	Run(ctx context.Context, deliver func(vo.ProgressEvent)) error
}

// Hub 是进程级的订阅者注册表。
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	closed  bool
	buffer  int
	relay   Relay
	outbox  chan vo.ProgressEvent
	stop    chan struct{}
	stopped sync.Once
	dropped atomic.Int64
	backlog atomic.Int64
	log     *log.Helper
}

// NewHub 构造 Hub。单副本部署时 relay 可为 nil。
func NewHub(cfg configloader.BroadcastConfig, relay Relay, logger log.Logger) *Hub {
	buffer := cfg.SubscriberBuffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		relay:  relay,
		outbox: make(chan vo.ProgressEvent, buffer*4),
		stop:   make(chan struct{}),
		log:    log.NewHelper(logger),
	}
}

// Filter 用于收窄订阅范围，零值字段匹配全部。
type Filter struct {
	UploadID uuid.UUID
	OwnerID  uuid.UUID
}

func (f Filter) matches(event vo.ProgressEvent) bool {
	if f.UploadID != uuid.Nil && f.UploadID != event.UploadID {
		return false
	}
	if f.OwnerID != uuid.Nil && f.OwnerID != event.OwnerID {
		return false
	}
	return true
}

// Subscription 表示一条实时事件流。订阅或 hub 关闭时 Events 通道被关闭。
type Subscription struct {
	id     uint64
	filter Filter
	ch     chan vo.ProgressEvent
	hub    *Hub
	once   sync.Once
}

// Events 返回事件流的接收端。
func (s *Subscription) Events() <-chan vo.ProgressEvent {
	return s.ch
}

// Close 注销订阅，可重复调用。
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Subscribe 注册订阅者。
func (h *Hub) Subscribe(filter Filter) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		filter: filter,
		ch:     make(chan vo.ProgressEvent, h.buffer),
		hub:    h,
	}
	h.subs[sub.id] = sub
	return sub, nil
}

// Publish 将事件交给 relay 或本地订阅者，不会阻塞。
// 配置 relay 时所有事件只走 relay 队列；队列已满则丢弃该事件，
// 避免它越过已排队的事件。
func (h *Hub) Publish(event vo.ProgressEvent) {
	if h.relay == nil {
		h.deliver(event)
		return
	}
	select {
	case h.outbox <- event:
	default:
		h.backlog.Add(1)
		h.log.Warnf("relay backlog full, dropping event: upload_id=%s progress=%d status=%s", event.UploadID, event.Progress, event.Status)
	}
}

// SubscriberCount 返回当前订阅数。
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped 返回因订阅者缓冲区已满而丢弃的事件数。
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// BacklogDropped 返回因 relay 队列已满而丢弃的事件数。
func (h *Hub) BacklogDropped() int64 {
	return h.backlog.Load()
}

// Start 运行 relay 循环，直到 Stop 或 ctx 取消。
func (h *Hub) Start(ctx context.Context) error {
	if h.relay == nil {
		select {
		case <-ctx.Done():
		case <-h.stop:
		}
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-runCtx.Done():
		case <-h.stop:
			cancel()
		}
	}()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return h.relay.Run(gctx, h.deliver)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case event := <-h.outbox:
				if err := h.relay.Publish(gctx, event); err != nil {
					h.log.Warnf("relay publish failed, delivering locally: upload_id=%s err=%v", event.UploadID, err)
					h.deliver(event)
				}
			}
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop 关闭所有订阅并拒绝新的订阅。
func (h *Hub) Stop(context.Context) error {
	h.stopped.Do(func() {
		close(h.stop)
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		for id, sub := range h.subs {
			delete(h.subs, id)
			sub.once.Do(func() { close(sub.ch) })
		}
	})
	return nil
}

func (h *Hub) deliver(event vo.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
	}
	sub.once.Do(func() { close(sub.ch) })
}
