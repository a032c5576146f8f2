// Package publisher fans audit actions out to Kafka for downstream
// compliance tooling. The database row stays the authoritative record;
// publishing is best-effort and never blocks a transition.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"carteirinha/internal/audit"
)

// Kafka publishes audit actions to a single topic, keyed by the target
// profile so one applicant's trail stays ordered within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

type record struct {
	ID            string    `json:"id"`
	PerformedBy   string    `json:"performed_by"`
	ActorRole     string    `json:"actor_role"`
	ActionType    string    `json:"action_type"`
	TargetProfile string    `json:"target_profile_id,omitempty"`
	TargetEntity  string    `json:"target_entity,omitempty"`
	Details       string    `json:"details,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Publish produces the action asynchronously. Delivery failures are logged,
// not surfaced; the postgres append already succeeded by the time this runs.
func (k *Kafka) Publish(ctx context.Context, action audit.Action) {
	rec := record{
		ID:           action.ID,
		PerformedBy:  action.PerformedBy.String(),
		ActorRole:    action.ActorRole,
		ActionType:   string(action.Type),
		TargetEntity: action.TargetEntity,
		Details:      action.Details,
		RequestID:    action.RequestID,
		CreatedAt:    action.CreatedAt,
	}
	if !action.TargetProfile.IsNil() {
		rec.TargetProfile = action.TargetProfile.String()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		k.logger.ErrorContext(ctx, "audit publish marshal failed", "error", err)
		return
	}

	k.client.Produce(ctx, &kgo.Record{
		Key:   []byte(rec.TargetProfile),
		Value: payload,
	}, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.ErrorContext(ctx, "audit publish failed",
				"action_id", action.ID, "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = k.client.Flush(ctx)
	k.client.Close()
}
