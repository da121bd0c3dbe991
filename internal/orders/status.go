package orders

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var known = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusShipped:   true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// Shipped and completed orders cannot be cancelled; cancellation restocks
// every line item, so it must fire at most once.
var cancellableFrom = []Status{StatusPending, StatusConfirmed}

// CANCELLED is terminal.
var updatableFrom = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusCompleted}

// ParseStatus rejects unknown status strings at the boundary.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, known[st]
}

// CanCancel guards the cancel path.
func CanCancel(from Status) bool {
	return contains(cancellableFrom, from)
}

// CanUpdate guards an explicit status update. The target must not be
// CANCELLED either: moving stock back is the cancel path's job.
func CanUpdate(from, to Status) bool {
	if !known[to] || to == StatusCancelled {
		return false
	}
	return contains(updatableFrom, from)
}

func contains(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
