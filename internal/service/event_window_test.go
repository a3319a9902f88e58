package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/secuteam/gwm-api/internal/models"
)

func windowEvent(checkIn, checkOut string, buffer int) *models.Event {
	return &models.Event{
		ID:                  "event-1",
		StartDate:           time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:             time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckInTime:         &checkIn,
		CheckOutTime:        &checkOut,
		Status:              models.EventStatusScheduled,
		AgentCreationBuffer: &buffer,
	}
}

func TestEffectiveStatusBoundaries(t *testing.T) {
	ev := windowEvent("08:00:00", "18:00:00", 120)

	cases := []struct {
		name string
		now  time.Time
		want models.EventStatus
	}{
		{"well before staffing window", time.Date(2024, 6, 1, 5, 30, 0, 0, time.UTC), models.EventStatusScheduled},
		{"inside pre-start buffer", time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC), models.EventStatusActive},
		{"exactly at staffing open", time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC), models.EventStatusActive},
		{"during the event", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), models.EventStatusActive},
		{"inside post-end grace", time.Date(2024, 6, 1, 19, 59, 0, 0, time.UTC), models.EventStatusActive},
		{"past the grace window", time.Date(2024, 6, 1, 20, 1, 0, 0, time.UTC), models.EventStatusCompleted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EffectiveStatus(ev, tc.now))
		})
	}
}

func TestEffectiveStatusExplicitOverride(t *testing.T) {
	ev := windowEvent("08:00:00", "18:00:00", 120)
	ev.Status = models.EventStatusCancelled

	// even long after the grace window the stored status wins
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, models.EventStatusCancelled, EffectiveStatus(ev, now))

	ev.Status = models.EventStatusTerminated
	assert.Equal(t, models.EventStatusTerminated, EffectiveStatus(ev, now))
}

func TestCheckOutMomentMidnightRollsOver(t *testing.T) {
	ev := windowEvent("20:00:00", "00:00:00", 120)

	got := CheckOutMoment(ev)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestWindowDefaults(t *testing.T) {
	ev := &models.Event{
		StartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:    models.EventStatusScheduled,
	}

	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), CheckInMoment(ev))
	assert.Equal(t, time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC), CheckOutMoment(ev))
	// default buffer is two hours before check-in
	assert.Equal(t, time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC), StaffingOpensAt(ev))
}

func TestStaffingOpensAtCustomBuffer(t *testing.T) {
	ev := windowEvent("08:00:00", "18:00:00", 30)
	assert.Equal(t, time.Date(2024, 6, 1, 7, 30, 0, 0, time.UTC), StaffingOpensAt(ev))
}
