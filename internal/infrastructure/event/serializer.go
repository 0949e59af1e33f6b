package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
)

// ErrUnknownEventType is returned for event types the serializer was not
// built with. The outbox never stores such events.
var ErrUnknownEventType = errors.New("unknown event type")

// Registration binds an event type name to the Go type its payload decodes into
type Registration struct {
	eventType string
	build     func() shared.DomainEvent
}

// EventOf registers *T under eventType
func EventOf[T any, P interface {
	*T
	shared.DomainEvent
}](eventType string) Registration {
	return Registration{eventType: eventType, build: func() shared.DomainEvent { return P(new(T)) }}
}

// EventSerializer encodes events as JSON outbox payloads and decodes them by
// type name. Its set of types is fixed at construction.
type EventSerializer struct {
	types map[string]func() shared.DomainEvent
}

func NewEventSerializer(regs ...Registration) *EventSerializer {
	s := &EventSerializer{types: make(map[string]func() shared.DomainEvent, len(regs))}
	for _, r := range regs {
		s.types[r.eventType] = r.build
	}
	return s
}

// NewInventoryEventSerializer knows every event the inventory domain raises
func NewInventoryEventSerializer() *EventSerializer {
	return NewEventSerializer(
		EventOf[inventory.StockMovementRecordedEvent](inventory.EventTypeStockMovementRecorded),
		EventOf[inventory.StockAdjustedEvent](inventory.EventTypeStockAdjusted),
		EventOf[inventory.NegativeStockDetectedEvent](inventory.EventTypeNegativeStockDetected),
	)
}

func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if !s.Knows(event.EventType()) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, event.EventType())
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.EventType(), err)
	}
	return payload, nil
}

func (s *EventSerializer) Deserialize(eventType string, payload []byte) (shared.DomainEvent, error) {
	build, ok := s.types[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	event := build()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", eventType, err)
	}
	return event, nil
}

func (s *EventSerializer) Knows(eventType string) bool {
	_, ok := s.types[eventType]
	return ok
}

// Types lists the known event types in sorted order
func (s *EventSerializer) Types() []string {
	return slices.Sorted(maps.Keys(s.types))
}
