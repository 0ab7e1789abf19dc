// Package outbox relays committed audit rows from Postgres to Kafka.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"sigil/pkg/platform/audit/store/postgres"
)

// Source is the outbox table.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Producer publishes one message synchronously.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

type Relay struct {
	source     Source
	producer   Producer
	topic      string
	batchSize  int
	interval   time.Duration
	maxRetries uint
	logger     *slog.Logger
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

func WithMaxRetries(n uint) Option {
	return func(r *Relay) { r.maxRetries = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func NewRelay(source Source, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		source:     source,
		producer:   producer,
		topic:      topic,
		batchSize:  100,
		interval:   time.Second,
		maxRetries: 5,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// RelayOnce ships one batch. Rows are marked published in order up to the
// first row that could not be delivered, so ordering per aggregate holds.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.source.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := make([]uuid.UUID, 0, len(entries))
	var publishErr error
	for _, e := range entries {
		headers := map[string]string{"event_type": e.EventType}
		_, publishErr = backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, r.producer.Publish(ctx, r.topic, []byte(e.AggregateID), e.Payload, headers)
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(r.maxRetries),
			backoff.WithNotify(func(err error, wait time.Duration) {
				r.logger.WarnContext(ctx, "retrying outbox publish",
					"error", err,
					"outbox_id", e.ID.String(),
					"wait", wait,
				)
			}),
		)
		if publishErr != nil {
			break
		}
		published = append(published, e.ID)
	}

	if err := r.source.MarkPublished(ctx, published); err != nil {
		return 0, err
	}
	return len(published), publishErr
}
