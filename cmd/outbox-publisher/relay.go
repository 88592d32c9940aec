package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	goretry "github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/pkg/config"
	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
	"github.com/angelmondragon/donorjournal-backend/pkg/metrics"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox/registry"
	"github.com/angelmondragon/donorjournal-backend/pkg/retry"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxErrorBackoff    = 10 * time.Second
	pollJitter         = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublished(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	MarkFailed(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminal(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// RelayParams wires the activity relay.
type RelayParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        txRunner
	PubSub    topicSource
	Store     outboxStore
	Resolver  eventResolver
	Metrics   *metrics.OutboxMetrics
	Publisher func(topic string) publisher
}

// Relay moves committed outbox rows onto the activity topic. Each batch runs
// in one transaction: rows are fetched, published and marked together.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	pubsub      topicSource
	store       outboxStore
	resolver    eventResolver
	metrics     *metrics.OutboxMetrics
	publisherOf func(topic string) publisher

	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Store == nil:
		return nil, errors.New("outbox store is required")
	case params.Resolver == nil:
		return nil, errors.New("event registry is required")
	}

	publisherOf := params.Publisher
	if publisherOf == nil {
		publisherOf = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	cfg := params.Config.Outbox
	return &Relay{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		store:        params.Store,
		resolver:     params.Resolver,
		metrics:      params.Metrics,
		publisherOf:  publisherOf,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run drains the outbox until ctx is canceled. A full batch is followed
// immediately by the next one; an empty batch waits one poll interval and a
// failed batch backs off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	deps := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", r.db.Ping},
		{"pubsub", r.pubsub.Ping},
	}
	for _, dep := range deps {
		if err := dep.ping(ctx); err != nil {
			r.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	var backoff goretry.Backoff
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "activity relay stopping")
			return err
		}

		processed, err := r.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "activity relay batch failed", err)
			if backoff == nil {
				backoff = retry.Backoff(r.pollInterval*2, maxErrorBackoff, pollJitter)
			}
			wait, _ = backoff.Next()
		case processed:
			backoff = nil
			continue
		default:
			backoff = nil
			wait, _ = retry.Backoff(r.pollInterval, r.pollInterval, pollJitter).Next()
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// processBatch reports whether any row was handled. Only bookkeeping errors
// abort the batch; publish failures are recorded on their rows.
func (r *Relay) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveBatch(time.Since(started)) }()

	processed := false
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublished(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(rows) > 0
		for _, row := range rows {
			if err := r.relay(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

func (r *Relay) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	eventType := string(row.EventType)
	logCtx := r.logg.WithFields(ctx, rowFields(row))

	resolved, err := r.resolver.Resolve(row)
	if err == nil {
		logCtx = r.logg.WithFields(logCtx, map[string]any{
			"event_id": resolved.Envelope.EventID,
			"topic":    resolved.Descriptor.Topic,
		})
		err = r.publish(ctx, row, resolved)
	}

	if err == nil {
		if markErr := r.store.MarkPublished(tx, row.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, markErr)
		}
		r.metrics.IncPublished(eventType)
		r.logg.Info(logCtx, "activity event published")
		return nil
	}

	r.metrics.IncFailed(eventType)
	logCtx = r.logg.WithField(logCtx, "error", err.Error())

	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		r.logg.Warn(logCtx, "activity event parked")
		if markErr := r.store.MarkTerminal(tx, row.ID, err, r.maxAttempts); markErr != nil {
			return fmt.Errorf("mark terminal %s: %w", row.ID, markErr)
		}
		return nil
	}

	if row.AttemptCount+1 >= r.maxAttempts {
		logCtx = r.logg.WithField(logCtx, "terminal_reason", "max_attempts")
	}
	r.logg.Warn(logCtx, "activity publish failed")
	if markErr := r.store.MarkFailed(tx, row.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", row.ID, markErr)
	}
	return nil
}

func (r *Relay) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := r.publisherOf(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	result := pub.Publish(publishCtx, activityMessage(row, resolved))
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

// activityMessage publishes the stored envelope unchanged. Attributes let
// subscribers filter without decoding; the ordering key keeps events for one
// decision or stage event in write order.
func activityMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func rowFields(row models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
