package service

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"dominoboard/internal/api/v1/dto"
	"dominoboard/internal/model"
	"dominoboard/internal/repository"
)

const (
	DeadLetterSourcePubSub = "pubsub"
	DeadLetterSourceQueue  = "pgmq"
)

type DLQService interface {
	// ProcessAndSave stores a message Pub/Sub gave up delivering.
	ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error
	// RecordQueueFailure stores a pgmq message the notification worker gave up on.
	RecordQueueFailure(ctx context.Context, queue, messageID string, payload []byte, cause error) error
	ListUnprocessed(ctx context.Context, limit int) ([]*model.DeadLetterMessage, error)
}

type dlqService struct {
	repo repository.DLQRepository
}

func NewDLQService(repo repository.DLQRepository) DLQService {
	return &dlqService{repo: repo}
}

func (s *dlqService) ProcessAndSave(ctx context.Context, req *dto.PubSubPushRequest) error {
	payload, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		// keep undecodable data as-is
		payload = []byte(req.Message.Data)
	}

	var attributes *string
	if len(req.Message.Attributes) > 0 {
		if raw, err := json.Marshal(req.Message.Attributes); err == nil {
			a := string(raw)
			attributes = &a
		}
	}

	return s.repo.Create(ctx, &model.DeadLetterMessage{
		Source:           DeadLetterSourcePubSub,
		SubscriptionName: req.Subscription,
		MessageID:        req.Message.MessageID,
		Payload:          string(payload),
		Attributes:       attributes,
		Status:           "unprocessed",
	})
}

func (s *dlqService) RecordQueueFailure(ctx context.Context, queue, messageID string, payload []byte, cause error) error {
	var attributes *string
	if cause != nil {
		if raw, err := json.Marshal(map[string]string{"error": cause.Error()}); err == nil {
			a := string(raw)
			attributes = &a
		}
	}
	return s.repo.Create(ctx, &model.DeadLetterMessage{
		Source:           DeadLetterSourceQueue,
		SubscriptionName: queue,
		MessageID:        messageID,
		Payload:          string(payload),
		Attributes:       attributes,
		Status:           "unprocessed",
	})
}

func (s *dlqService) ListUnprocessed(ctx context.Context, limit int) ([]*model.DeadLetterMessage, error) {
	if limit <= 0 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}
	return s.repo.ListUnprocessed(ctx, limit)
}
