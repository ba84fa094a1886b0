package orders

import (
	"github.com/mruizcampos/unimarket-backend/pkg/enums"
)

// transitions is the closed set of allowed order status moves. Anything not
// listed here is rejected with a state conflict, so the two terminal states
// and every skipped step are unreachable by construction.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPendingPayment: {
		enums.OrderStatusPaid,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaid: {
		enums.OrderStatusPreparing,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPreparing: {
		enums.OrderStatusShipped,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusInTransit,
		// Pickup orders skip the carrier leg; hand-over verification
		// completes them straight from shipped.
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusInTransit: {
		enums.OrderStatusDelivered,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusRefunded,
	},
	enums.OrderStatusCancelled: {},
	enums.OrderStatusRefunded:  {},
}

// CanTransition reports whether the move between the two statuses is allowed.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
