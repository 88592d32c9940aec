package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/donorjournal-backend/pkg/db/models"
	"github.com/angelmondragon/donorjournal-backend/pkg/outbox"
)

// txOutboxStore binds the shared outbox repository to the batch transaction.
type txOutboxStore struct {
	repo *outbox.Repository
}

func (s txOutboxStore) FetchUnpublished(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return s.repo.WithTx(tx).FetchUnpublished(limit, maxAttempts)
}

func (s txOutboxStore) MarkPublished(tx *gorm.DB, id uuid.UUID) error {
	return s.repo.WithTx(tx).MarkPublished(id)
}

func (s txOutboxStore) MarkFailed(tx *gorm.DB, id uuid.UUID, err error) error {
	return s.repo.WithTx(tx).MarkFailed(id, err)
}

func (s txOutboxStore) MarkTerminal(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	return s.repo.WithTx(tx).MarkTerminal(id, err, terminalAttempts)
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func newGCPPublisher(pub *gcppubsub.Publisher) publisher {
	if pub == nil {
		return nil
	}
	return gcpPublisher{pub: pub}
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return gcpResult{
		res:         p.pub.Publish(ctx, msg),
		pub:         p.pub,
		orderingKey: msg.OrderingKey,
	}
}

type gcpResult struct {
	res         *gcppubsub.PublishResult
	pub         *gcppubsub.Publisher
	orderingKey string
}

// Get waits for the server ack. A failed ordered publish pauses its key, so
// the key is resumed here and the row is retried on a later batch.
func (r gcpResult) Get(ctx context.Context) (string, error) {
	if r.res == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.res.Get(ctx)
	if err != nil && r.orderingKey != "" {
		r.pub.ResumePublish(r.orderingKey)
	}
	return id, err
}
