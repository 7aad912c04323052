package orders

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// failed -> completed: satu gateway order bisa punya attempt gagal lalu capture.
var validNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentCompleted: true, PaymentFailed: true},
	PaymentFailed:    {PaymentCompleted: true},
	PaymentCompleted: {PaymentRefunded: true},
	PaymentRefunded:  {},
}

func CanTransition(from, to PaymentStatus) bool {
	return validNext[from][to]
}

// Sources: status asal yang boleh pindah ke `to`.
func Sources(to PaymentStatus) []string {
	var out []string
	for _, from := range []PaymentStatus{PaymentPending, PaymentFailed, PaymentCompleted, PaymentRefunded} {
		if CanTransition(from, to) {
			out = append(out, string(from))
		}
	}
	return out
}

func (s PaymentStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}
