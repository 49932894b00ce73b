package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/po"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"cloud.google.com/go/pubsub"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// 终态记录发布的事件类型。
const (
	EventUploadCompleted = "upload.completed"
	EventUploadFailed    = "upload.failed"
)

// UploadEvent 为生命周期通知的 JSON 消息体。
type UploadEvent struct {
	EventID     uuid.UUID `json:"eventId"`
	EventType   string    `json:"eventType"`
	UploadID    uuid.UUID `json:"uploadId"`
	OwnerID     uuid.UUID `json:"ownerId"`
	Status      string    `json:"status"`
	Progress    int32     `json:"progress"`
	ExternalRef *string   `json:"externalRef,omitempty"`
	Error       *string   `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// PubSubNotifier 将终态记录发布到 Pub/Sub topic。
type PubSubNotifier struct {
	topic   *pubsub.Topic
	timeout time.Duration
	log     *log.Helper
}

// NewPubSubNotifier 包装已有的 topic 句柄。
func NewPubSubNotifier(topic *pubsub.Topic, timeout time.Duration, logger log.Logger) *PubSubNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PubSubNotifier{topic: topic, timeout: timeout, log: log.NewHelper(logger)}
}

// NewLifecycleNotifier 在配置了 topic 时连接 Pub/Sub，否则返回空实现。
func NewLifecycleNotifier(ctx context.Context, cfg configloader.PubSubConfig, logger log.Logger) (services.LifecycleNotifier, func(), error) {
	helper := log.NewHelper(logger)
	if cfg.TopicID == "" {
		helper.Info("pubsub topic not configured; lifecycle notifications disabled")
		return noopNotifier{}, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.TopicID)
	cleanup := func() {
		topic.Stop()
		if err := client.Close(); err != nil {
			helper.Warnf("close pubsub client: %v", err)
		}
	}
	helper.Infof("lifecycle notifications enabled: project=%s topic=%s", cfg.ProjectID, cfg.TopicID)
	return NewPubSubNotifier(topic, cfg.PublishTimeout.Std(), logger), cleanup, nil
}

// NotifyTerminal 发布一条事件并等待服务端确认。
func (n *PubSubNotifier) NotifyTerminal(ctx context.Context, record *po.UploadRecord) error {
	event := UploadEvent{
		EventID:     uuid.New(),
		EventType:   eventTypeFor(record.Status),
		UploadID:    record.ID,
		OwnerID:     record.OwnerID,
		Status:      string(record.Status),
		Progress:    record.Progress,
		ExternalRef: record.ExternalRef,
		Error:       record.ErrorMessage,
		OccurredAt:  record.UpdatedAt.UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal upload event: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	result := n.topic.Publish(pctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": event.EventType,
			"upload_id":  record.ID.String(),
			"owner_id":   record.OwnerID.String(),
		},
	})
	msgID, err := result.Get(pctx)
	if err != nil {
		return fmt.Errorf("publish upload event: %w", err)
	}
	n.log.WithContext(ctx).Debugf("upload event published: upload_id=%s type=%s message_id=%s", record.ID, event.EventType, msgID)
	return nil
}

func eventTypeFor(status po.UploadStatus) string {
	if status == po.UploadStatusCompleted {
		return EventUploadCompleted
	}
	return EventUploadFailed
}

type noopNotifier struct{}

func (noopNotifier) NotifyTerminal(context.Context, *po.UploadRecord) error { return nil }
