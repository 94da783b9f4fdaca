package booking

// Operation names a lifecycle transition.
type Operation string

const (
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpConfirm    Operation = "confirm"
	OpCancel     Operation = "cancel"
	OpReschedule Operation = "reschedule"
	OpNoShow     Operation = "mark no-show"
	OpCheckIn    Operation = "check in"
	OpStart      Operation = "start"
	OpComplete   Operation = "complete"
)

// transitions lists, per operation, the statuses it may be applied from and the
// status it produces. RESCHEDULED is accepted wherever SCHEDULED is.
var transitions = map[Operation]struct {
	from []Status
	to   Status
}{
	OpConfirm:    {from: []Status{StatusScheduled, StatusRescheduled}, to: StatusConfirmed},
	OpCancel:     {from: []Status{StatusScheduled, StatusConfirmed, StatusRescheduled}, to: StatusCancelled},
	OpReschedule: {from: []Status{StatusScheduled, StatusConfirmed, StatusRescheduled}, to: StatusRescheduled},
	OpNoShow:     {from: []Status{StatusScheduled, StatusConfirmed, StatusRescheduled}, to: StatusNoShow},
	OpCheckIn:    {from: []Status{StatusScheduled, StatusConfirmed, StatusRescheduled}, to: StatusCheckedIn},
	OpStart:      {from: []Status{StatusCheckedIn}, to: StatusInProgress},
	OpComplete:   {from: []Status{StatusInProgress}, to: StatusCompleted},
}

// windowMutable lists the statuses whose window may still be moved by an update.
var windowMutable = map[Status]bool{
	StatusScheduled:   true,
	StatusConfirmed:   true,
	StatusRescheduled: true,
}

// Next returns the status produced by applying op to a booking in status
// current, or a StateConflictError if the transition is not allowed.
func Next(current Status, op Operation) (Status, error) {
	t, ok := transitions[op]
	if !ok || current.IsTerminal() {
		return "", invalidTransition(current, op)
	}
	for _, s := range t.from {
		if s == current {
			return t.to, nil
		}
	}
	return "", invalidTransition(current, op)
}

// CanMoveWindow reports whether a booking in status s may change its window.
func CanMoveWindow(s Status) bool {
	return windowMutable[s]
}
