package draft

import "time"

// transitions is the single source of truth for the draft state graph.
// scheduled -> approved is the dispatch-failure requeue path.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusScheduled, StatusCancelled},
	StatusScheduled:       {StatusPublished, StatusCancelled, StatusApproved, StatusFailed},
}

// CanTransition reports whether from -> to is in the state graph.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition applies from -> to on d or returns InvalidTransitionError,
// leaving d untouched. It does not persist; callers commit via the
// repository's versioned update.
func (d *Draft) Transition(to Status) error {
	if !CanTransition(d.Status, to) {
		return &InvalidTransitionError{From: d.Status, To: to}
	}
	d.Status = to
	d.UpdatedAt = time.Now().UTC()
	return nil
}
