package events

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/artivio/marketplace/internal/kafka"
)

// KafkaEmitter wraps envelope framing around the async producer.
type KafkaEmitter struct {
	Producer *kafkax.Producer
	Service  string
}

func (e *KafkaEmitter) Emit(eventType, orderID string, payload any) {
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload:       MustMarshal(payload),
	}
	e.Producer.Publish(TopicOrders, PartitionKey(orderID), MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
