package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/inventorystorage/pkg/logger"
)

// Delivery is one event handed to a Handler.
type Delivery struct {
	Topic   string
	EventID string
	Tenant  string
	Payload []byte
}

// Decode unmarshals the payload into v. A payload that does not decode will
// never decode, so the error is marked permanent.
func (d Delivery) Decode(v any) error {
	if err := json.Unmarshal(d.Payload, v); err != nil {
		return Permanent(fmt.Errorf("decode %s event %s: %w", d.Topic, d.EventID, err))
	}
	return nil
}

// Handler processes one delivery. Returning nil acknowledges it.
type Handler func(ctx context.Context, d Delivery) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. The message is acknowledged and
// the error reported on the subscription's error channel.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped by Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Subscribe consumes topic in the background. The handler's context carries
// the publisher's trace.
//
// A handler error is retried up to 3 times (1s, 2s, 4s). After that the
// message is Nacked for redelivery, unless the error is permanent, in which
// case it is Acked and dropped. Either way the error goes to the returned
// channel (capacity 100), which the caller must drain:
//
//	errCh, err := bus.Subscribe(ctx, topic, handler)
//	go func() { for err := range errCh { log.ErrorContext(ctx, "subscriber error", "error", err) } }()
func (q *EventBus) Subscribe(ctx context.Context, topic string, handler Handler) (<-chan error, error) {
	ch, err := q.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe to %s: %w", topic, err)
	}

	errCh := make(chan error, 100)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(errCh)

		for msg := range ch {
			msgCtx, d := delivery(ctx, topic, msg)

			err := retryWithBackoff(msgCtx, d, handler, maxRetries, retryBaseDelay, q.log)
			switch {
			case err == nil:
				msg.Ack()
				continue
			case IsPermanent(err):
				msg.Ack()
			default:
				msg.Nack()
			}

			select {
			case errCh <- err:
			default:
				q.log.ErrorContext(msgCtx, "events: error channel full, dropping error",
					"error", err, "topic", topic, "tenant", d.Tenant)
			}
		}
	}()

	return errCh, nil
}

// delivery restores the trace context from msg metadata and unpacks it.
func delivery(ctx context.Context, topic string, msg *message.Message) (context.Context, Delivery) {
	carrier := propagation.MapCarrier{}
	for k, v := range msg.Metadata {
		carrier[k] = v
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier), Delivery{
		Topic:   topic,
		EventID: msg.Metadata.Get(MetadataEventID),
		Tenant:  msg.Metadata.Get(MetadataTenant),
		Payload: msg.Payload,
	}
}

// retryWithBackoff calls handler up to attempts times, doubling the delay
// after each failure. Permanent errors stop it early.
func retryWithBackoff(
	ctx context.Context,
	d Delivery,
	handler Handler,
	attempts int,
	baseDelay time.Duration,
	log logger.Logger,
) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = handler(ctx, d); err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		log.WarnContext(ctx, "events: handler failed, retrying",
			"topic", d.Topic,
			"event_id", d.EventID,
			"tenant", d.Tenant,
			"attempt", attempt,
			"next_delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("events: %s handler failed after %d attempts: %w", d.Topic, attempts, err)
}
