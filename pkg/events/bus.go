// Package events is the item event bus: a Postgres-backed Watermill pub/sub
// fed through a transactional outbox.
//
// Repositories publish with PublishJSONTx inside the transaction that changes
// the item rows, so a row and its event commit or roll back together. On an
// outbox bus the message lands in an internal queue first and the forwarder
// (StartForwarder) moves it to the real topic.
//
// Subscribers sharing cfg.ServiceName form one consumer group: each message
// is processed by exactly one worker instance. Handlers must be idempotent;
// a failed delivery is retried with backoff, then Nacked and redelivered.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/inventorystorage/pkg/config"
	"github.com/ghuser/inventorystorage/pkg/database"
	"github.com/ghuser/inventorystorage/pkg/logger"
)

const (
	maxRetries      = 3
	retryBaseDelay  = time.Second
	shutdownTimeout = 30 * time.Second
	outboxTopic     = "_item_outbox"
)

// Metadata keys set on every message published through PublishJSONTx.
const (
	MetadataEventID = "event_id"
	MetadataTenant  = "tenant"
)

// EventBus publishes and consumes item events over watermill-sql.
type EventBus struct {
	publisher  message.Publisher
	subscriber *watermillsql.Subscriber
	fwd        *forwarder.Forwarder
	db         *sql.DB
	log        logger.Logger
	wg         sync.WaitGroup
	outbox     bool
}

// NewEventBus returns a bus that publishes straight to topics. The worker
// uses it for consuming only. The bus never closes the shared pool.
func NewEventBus(db *database.Database, cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(db.DB(), cfg, log, false)
}

// NewEventBusWithForwarder returns a bus whose publishes go through the outbox
// queue. Call StartForwarder before relying on delivery.
func NewEventBusWithForwarder(db *database.Database, cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(db.DB(), cfg, log, true)
}

func newEventBus(db *sql.DB, cfg *config.Config, log logger.Logger, outbox bool) (*EventBus, error) {
	wlog := newLogAdapter(log)

	pub, err := watermillsql.NewPublisher(db, publisherConfig(true), wlog)
	if err != nil {
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}

	var publisher message.Publisher = pub
	if outbox {
		publisher = wrapOutbox(pub)
	}

	sub, err := newSQLSubscriber(db, cfg.ServiceName+"-consumer", wlog)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("events: new subscriber: %w", err)
	}

	return &EventBus{
		publisher:  publisher,
		subscriber: sub,
		db:         db,
		log:        log,
		outbox:     outbox,
	}, nil
}

// publisherConfig is shared by the pool and transaction publishers. Only the
// pool publisher creates tables; transactions run after startup.
func publisherConfig(initSchema bool) watermillsql.PublisherConfig {
	return watermillsql.PublisherConfig{
		SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
		AutoInitializeSchema: initSchema,
	}
}

func newSQLSubscriber(db *sql.DB, group string, wlog *logAdapter) (*watermillsql.Subscriber, error) {
	return watermillsql.NewSubscriber(db, watermillsql.SubscriberConfig{
		SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
		ConsumerGroup:    group,
	}, wlog)
}

// Ping checks the EventBus database connection health.
func (q *EventBus) Ping(ctx context.Context) error {
	if err := q.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close stops the subscriber and the forwarder, waits up to 30s for in-flight
// handlers, then closes the publisher.
func (q *EventBus) Close() error {
	if err := q.subscriber.Close(); err != nil {
		return fmt.Errorf("events: close subscriber: %w", err)
	}

	if q.fwd != nil {
		if err := q.fwd.Close(); err != nil {
			return fmt.Errorf("events: close forwarder: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		q.log.Error("events: timed out waiting for in-flight handlers to complete")
	}

	if err := q.publisher.Close(); err != nil {
		return fmt.Errorf("events: close publisher: %w", err)
	}
	return nil
}
