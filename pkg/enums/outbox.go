package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateListing OutboxAggregateType = "listing"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateListing,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType enumerates the domain events written to the outbox.
type OutboxEventType string

const (
	EventBidPlaced      OutboxEventType = "bid_placed"
	EventListingCreated OutboxEventType = "listing_created"
	EventListingSettled OutboxEventType = "listing_settled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBidPlaced,
	EventListingCreated,
	EventListingSettled,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}
