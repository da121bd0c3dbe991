package chat

// Session statuses only move forward. rank encodes that order; a transition
// is legal only if it strictly advances.
var rank = map[Status]int{
	StatusPending:      0,
	StatusNegotiating:  1,
	StatusOrderCreated: 2,
	StatusClosed:       3,
}

// CanAdvance reports whether a session may move from one status to another
// via an explicit update. ORDER_CREATED is reserved for order creation and
// cannot be entered this way.
func CanAdvance(from, to Status) bool {
	fr, ok := rank[from]
	if !ok {
		return false
	}
	tr, ok := rank[to]
	if !ok {
		return false
	}
	if to == StatusOrderCreated {
		return false
	}
	return tr > fr
}

// CanMarkOrderCreated reports whether order creation may stamp the session.
// Only live negotiations qualify.
func CanMarkOrderCreated(from Status) bool {
	return from == StatusPending || from == StatusNegotiating
}

// ParseStatus rejects unknown status strings at the boundary.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := rank[st]
	return st, ok
}
