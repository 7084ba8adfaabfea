package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/relief_locator/internal/models"
)

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/shenikar/relief_locator/internal/webhook WebhookPublisher

const (
	webhookQueueKey = "webhook_events"

	EventCapacityUpdated = "capacity.updated"
)

// WebhookEvent - данные вебхука об изменении вместимости ресурса
type WebhookEvent struct {
	Type              string                `json:"type"`
	UpdateID          string                `json:"update_id"`
	ResourceID        uuid.UUID             `json:"resource_id"`
	ResourceName      string                `json:"resource_name"`
	ResourceType      models.ResourceType   `json:"resource_type"`
	Region            string                `json:"region"`
	Status            models.ResourceStatus `json:"status"`
	Capacity          *int                  `json:"capacity,omitempty"`
	PreviousCapacity  int                   `json:"previous_capacity"`
	AvailableCapacity int                   `json:"available_capacity"`
	ActorID           uuid.UUID             `json:"actor_id"`
	ChangeLog         string                `json:"change_log"`
	Timestamp         time.Time             `json:"timestamp"`
}

// NewCapacityEvent builds the event for a committed capacity update
func NewCapacityEvent(resource *models.Resource, update *models.CapacityUpdate) WebhookEvent {
	return WebhookEvent{
		Type:              EventCapacityUpdated,
		UpdateID:          update.ID,
		ResourceID:        resource.ID,
		ResourceName:      resource.Name,
		ResourceType:      resource.Type,
		Region:            resource.Region,
		Status:            resource.Status(),
		Capacity:          resource.Capacity,
		PreviousCapacity:  update.PreviousCapacity,
		AvailableCapacity: update.NewCapacity,
		ActorID:           update.ActorID,
		ChangeLog:         update.ChangeLog,
		Timestamp:         update.Timestamp,
	}
}

// WebhookPublisher - интерфейс для публикации вебхуков
type WebhookPublisher interface {
	Publish(ctx context.Context, event WebhookEvent) error
}

// RedisWebhookPublisher - реализация WebhookPublisher, использующая Redis
type RedisWebhookPublisher struct {
	redisClient *redis.Client
}

func NewRedisWebhookPublisher(client *redis.Client) *RedisWebhookPublisher {
	return &RedisWebhookPublisher{
		redisClient: client,
	}
}

// Publish публикует событие вебхука в очередь Redis
func (p *RedisWebhookPublisher) Publish(ctx context.Context, event WebhookEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}

// NoopPublisher drops events. Used when no queue is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, WebhookEvent) error {
	return nil
}
