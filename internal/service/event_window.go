package service

import (
	"time"

	"github.com/secuteam/gwm-api/internal/models"
)

const (
	// defaultCreationBufferMinutes opens the staffing window two hours
	// before check-in when the event carries no buffer of its own.
	defaultCreationBufferMinutes = 120
	// checkoutGrace keeps an event displayed as active for two hours past
	// its check-out moment so late check-outs still land on a live event.
	// Applied consistently across every read path, not just here.
	checkoutGrace = 2 * time.Hour

	defaultCheckInClock  = "00:00:00"
	defaultCheckOutClock = "23:59:59"
)

// EventWindow derives the effective time window of an event from its
// start/end dates, check-in/check-out clocks and creation buffer. All
// functions are pure; read paths call them on every request and the
// results are only opportunistically persisted.

// CheckInMoment combines the start date's day with the check-in clock.
func CheckInMoment(ev *models.Event) time.Time {
	clock := defaultCheckInClock
	if ev.CheckInTime != nil && *ev.CheckInTime != "" {
		clock = *ev.CheckInTime
	}
	return combineDateClock(ev.StartDate, clock)
}

// CheckOutMoment combines the end date's day with the check-out clock. A
// midnight check-out means the event closes past midnight and rolls to the
// next calendar day.
func CheckOutMoment(ev *models.Event) time.Time {
	clock := defaultCheckOutClock
	if ev.CheckOutTime != nil && *ev.CheckOutTime != "" {
		clock = *ev.CheckOutTime
	}
	moment := combineDateClock(ev.EndDate, clock)
	if clock == "00:00:00" {
		moment = moment.AddDate(0, 0, 1)
	}
	return moment
}

// StaffingOpensAt returns the earliest instant staffing actions are allowed:
// the check-in moment minus the event's creation buffer.
func StaffingOpensAt(ev *models.Event) time.Time {
	buffer := defaultCreationBufferMinutes
	if ev.AgentCreationBuffer != nil && *ev.AgentCreationBuffer >= 0 {
		buffer = *ev.AgentCreationBuffer
	}
	return CheckInMoment(ev).Add(-time.Duration(buffer) * time.Minute)
}

// EffectiveStatus computes the event status at the given instant. Stored
// cancelled/terminated statuses always win and are never recomputed.
func EffectiveStatus(ev *models.Event, now time.Time) models.EventStatus {
	if ev.Status.Explicit() {
		return ev.Status
	}

	checkOut := CheckOutMoment(ev)
	if now.After(checkOut.Add(checkoutGrace)) {
		return models.EventStatusCompleted
	}

	opensAt := StaffingOpensAt(ev)
	if now.Before(opensAt) {
		return models.EventStatusScheduled
	}

	return models.EventStatusActive
}

// combineDateClock glues the calendar day of date to an "HH:MM:SS" clock in
// the date's location. Unparseable clocks fall back to midnight.
func combineDateClock(date time.Time, clock string) time.Time {
	parsed, err := time.Parse("15:04:05", clock)
	if err != nil {
		parsed, err = time.Parse("15:04", clock)
		if err != nil {
			parsed = time.Time{}
		}
	}
	year, month, day := date.Date()
	return time.Date(year, month, day, parsed.Hour(), parsed.Minute(), parsed.Second(), 0, date.Location())
}
