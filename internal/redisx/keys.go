package redisx

import "time"

const (
	// Dedup event processing: dedup:{scope}:{id}
	// scope "webhook" -> id = x-razorpay-event-id, scope "cart-clear" -> id = envelope event_id
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
