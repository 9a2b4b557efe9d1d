package enums

// OutboxEventType is the canonical event_type stored on outbox rows.
type OutboxEventType string

const (
	EventOrderCreated    OutboxEventType = "order.created"
	EventOrderShipped    OutboxEventType = "order.shipped"
	EventOrderReceived   OutboxEventType = "order.received"
	EventRefundRequested OutboxEventType = "refund.requested"
	EventRefundDecided   OutboxEventType = "refund.decided"
	EventDonationDecided OutboxEventType = "donation.decided"
	EventCartAdjusted    OutboxEventType = "cart.adjusted"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregatePayment   OutboxAggregateType = "payment"
	AggregateOrderItem OutboxAggregateType = "order_item"
	AggregateDonation  OutboxAggregateType = "donation"
	AggregateCartItem  OutboxAggregateType = "cart_item"
)

// OutboxDLQErrorReason classifies why an event was parked in the DLQ.
type OutboxDLQErrorReason string

const (
	DLQReasonPublishFailed  OutboxDLQErrorReason = "publish_failed"
	DLQReasonMaxAttempts    OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonInvalidPayload OutboxDLQErrorReason = "invalid_payload"
)

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// String implements fmt.Stringer.
func (o OutboxDLQErrorReason) String() string {
	return string(o)
}
