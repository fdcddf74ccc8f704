package reminder

import (
	"time"

	"jobtrail/features/application"
)

// alertable are the stages where a deadline is actionable. Applied has
// nothing to prepare for and Rejected has nothing left to do.
var alertable = map[application.Status]bool{
	application.StatusOA:        true,
	application.StatusInterview: true,
	application.StatusOffer:     true,
}

// Gate decides whether a record deserves a deadline alert right now.
type Gate struct {
	lookahead time.Duration
}

func NewGate(lookaheadDays int) *Gate {
	return &Gate{lookahead: time.Duration(lookaheadDays) * 24 * time.Hour}
}

// ShouldAlert is true when the record is in an alertable stage, has a
// deadline, has not been alerted for this stage, and the deadline is no
// later than the lookahead horizon. A deadline exactly at the window edge
// still alerts, and so does one already in the past: an overdue application
// the user never heard about is exactly the record that needs the nudge.
// Only the alerted_at mark suppresses.
func (g *Gate) ShouldAlert(rec *application.Record, now time.Time) bool {
	if !alertable[rec.Status] {
		return false
	}
	if rec.Deadline == nil || rec.AlertedAt != nil {
		return false
	}
	return !rec.Deadline.After(now.Add(g.lookahead))
}
