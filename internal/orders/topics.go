package orders

const (
	TopicOrderPlaced        = "order.placed"
	TopicPaymentStatus      = "order.payment.status"
	TopicCartClearRequested = "cart.clear.requested"
)

// Partition key = entity id, supaya event 1 entity maintain urutan.
func PartitionKey(id string) []byte { return []byte(id) }
