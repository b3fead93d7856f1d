package domain

import "time"

// TimelineEntry is an immutable audit record of one status change.
type TimelineEntry struct {
	Status    TicketStatus
	Timestamp time.Time
	ActorID   string
	Notes     string
}

// Timeline is the ordered status history of a ticket.
type Timeline []TimelineEntry

// Append returns the timeline extended by entry. Existing entries are never
// rewritten.
func (tl Timeline) Append(entry TimelineEntry) Timeline {
	out := make(Timeline, len(tl), len(tl)+1)
	copy(out, tl)
	return append(out, entry)
}

// Last returns the most recent entry.
func (tl Timeline) Last() (TimelineEntry, bool) {
	if len(tl) == 0 {
		return TimelineEntry{}, false
	}
	return tl[len(tl)-1], true
}

// Since returns the entries appended after the first n.
func (tl Timeline) Since(n int) Timeline {
	if n >= len(tl) {
		return nil
	}
	return tl[n:]
}
