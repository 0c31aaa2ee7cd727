// Package events announces newly seen products on a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/snowboard-monitor/internal/models"
)

const (
	EventNewProduct = "NEW_PRODUCT_DETECTED"
	AggregateType   = "snowboard"
	DefaultStream   = "stream:product_lifecycle"
	DefaultSeenSet  = "snowboards:seen"
)

// RedisClient is the subset of *redis.Client the publisher uses.
type RedisClient interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	SeenSet  string
	Source   string
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Publisher emits one event per product id the first time it is seen. The
// seen set lives in Redis, so it survives restarts.
type Publisher struct {
	redis   RedisClient
	stream  string
	seenSet string
	source  string
	logger  *slog.Logger
	now     func() time.Time
}

func NewPublisher(client RedisClient, cfg Config, logger *slog.Logger) *Publisher {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.SeenSet == "" {
		cfg.SeenSet = DefaultSeenSet
	}
	if cfg.Source == "" {
		cfg.Source = "snowboard-monitor"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		redis:   client,
		stream:  cfg.Stream,
		seenSet: cfg.SeenSet,
		source:  cfg.Source,
		logger:  logger.With("component", "event_publisher"),
		now:     time.Now,
	}
}

// PublishNew returns how many events were published. A failure for one
// product does not stop the others; all failures are returned joined.
func (p *Publisher) PublishNew(ctx context.Context, products []*models.Product) (int, error) {
	var (
		published int
		errs      []error
	)

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return published, err
		}

		added, err := p.redis.SAdd(ctx, p.seenSet, product.ID).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to mark %s as seen: %w", product.ID, err))
			continue
		}
		if added == 0 {
			continue
		}

		if err := p.publish(ctx, product); err != nil {
			errs = append(errs, err)
			continue
		}
		published++
	}

	if published > 0 {
		p.logger.Info("published new products", "count", published, "stream", p.stream)
	}
	return published, errors.Join(errs...)
}

func (p *Publisher) publish(ctx context.Context, product *models.Product) error {
	eventID := uuid.New()
	now := p.now()

	streamData := map[string]interface{}{
		"id":             eventID.String(),
		"type":           EventNewProduct,
		"aggregate_type": AggregateType,
		"aggregate_id":   product.ID,
		"timestamp":      now.Format(time.RFC3339),
		"payload":        product,
		"metadata": map[string]interface{}{
			"source": p.source,
		},
	}

	dataJSON, err := json.Marshal(streamData)
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":           string(dataJSON),
			"type":           EventNewProduct,
			"timestamp":      fmt.Sprintf("%d", now.UnixNano()),
			"original_id":    eventID.String(),
			"aggregate_id":   product.ID,
			"aggregate_type": AggregateType,
			"event_type":     EventNewProduct,
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	return nil
}
