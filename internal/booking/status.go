package booking

// Status is a booking's position in the lifecycle state machine.
type Status string

const (
	StatusPaymentPending  Status = "payment_pending"
	StatusPaid            Status = "paid"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusRescheduled     Status = "rescheduled"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// transitions is the fixed edge set of the lifecycle graph. Terminal
// statuses have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPaymentPending:  {StatusPaid, StatusApproved, StatusRejected, StatusRescheduled, StatusCancelled},
	StatusPaid:            {StatusApproved, StatusRejected, StatusRescheduled, StatusCancelled},
	StatusPendingApproval: {StatusApproved, StatusRejected, StatusRescheduled, StatusCancelled},
	StatusApproved:        {StatusRescheduled, StatusCompleted, StatusCancelled},
	StatusRescheduled:     {StatusApproved, StatusCancelled},
	StatusRejected:        nil,
	StatusCompleted:       nil,
	StatusCancelled:       nil,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s has no outgoing edges.
func (s Status) Terminal() bool {
	edges, ok := transitions[s]
	return ok && len(edges) == 0
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatus returns the admission status for a booking type. Medicine
// orders have no upfront payment step, so they skip payment collection.
func InitialStatus(t BookingType) Status {
	if t == TypeMedicine {
		return StatusPaid
	}
	return StatusPaymentPending
}
