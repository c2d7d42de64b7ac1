package pubsub

import (
	"context"
	"fmt"
	"strconv"

	"dominoboard/internal/config"

	"cloud.google.com/go/pubsub"
)

// Publisher defines an interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// PubSubPublisher is an implementation of Publisher using Google Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client
}

// NewPublisher creates a new PubSubPublisher using the GCP project from config.
func NewPublisher(ctx context.Context, cfg *config.Config) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client}, nil
}

// Publish sends the payload to the given Pub/Sub topic and returns the message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.client.Topic(topic)
	result := t.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

func (p *PubSubPublisher) Close() error {
	return p.client.Close()
}

// QueueSender is the pgmq operation QueuePublisher needs.
type QueueSender interface {
	Send(ctx context.Context, queue string, payload []byte) (int64, error)
}

// QueuePublisher publishes to a pgmq queue named after the topic.
type QueuePublisher struct {
	sender QueueSender
}

func NewQueuePublisher(sender QueueSender) *QueuePublisher {
	return &QueuePublisher{sender: sender}
}

func (p *QueuePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	id, err := p.sender.Send(ctx, topic, payload)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue message on %s: %w", topic, err)
	}
	return strconv.FormatInt(id, 10), nil
}
