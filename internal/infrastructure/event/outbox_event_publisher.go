package event

import (
	"context"

	"gorm.io/gorm"

	"github.com/spiceshelf/backend/internal/domain/shared"
)

// OutboxEventPublisher implements shared.EventPublisher on top of the outbox
// table. Events become durable immediately; the OutboxProcessor delivers them
// to the in-process bus afterwards.
type OutboxEventPublisher struct {
	repo       *GormOutboxRepository
	serializer *EventSerializer
}

// NewOutboxEventPublisher creates an outbox-backed event publisher
func NewOutboxEventPublisher(db *gorm.DB, serializer *EventSerializer) *OutboxEventPublisher {
	return &OutboxEventPublisher{
		repo:       NewGormOutboxRepository(db),
		serializer: serializer,
	}
}

// Publish serializes the events and stores them as pending outbox entries
func (p *OutboxEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, evt := range events {
		payload, err := p.serializer.Serialize(evt)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(evt, payload))
	}
	return p.repo.Save(ctx, entries...)
}

var _ shared.EventPublisher = (*OutboxEventPublisher)(nil)
