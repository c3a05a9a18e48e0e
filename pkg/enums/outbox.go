package enums

import "fmt"

// OutboxAggregateType names the entity whose state change produced an event.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder || a == AggregateProduct
}

// OutboxEventType is the routing key published for an outbox row.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventProductStatusSet   OutboxEventType = "product_status_changed"
)

var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventOrderCreated:       AggregateOrder,
	EventOrderStatusChanged: AggregateOrder,
	EventOrderCancelled:     AggregateOrder,
	EventProductStatusSet:   AggregateProduct,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate reports which aggregate type the event belongs to.
func (e OutboxEventType) Aggregate() (OutboxAggregateType, bool) {
	agg, ok := eventAggregates[e]
	return agg, ok
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(value)
	if !e.IsValid() {
		return "", fmt.Errorf("invalid event type %q", value)
	}
	return e, nil
}
