package scheduler

import (
	"time"
)

// Trigger decides when a job next fires.
type Trigger interface {
	// Next returns the first fire time strictly after now.
	Next(now time.Time) time.Time
}

// intervalTrigger fires every d.
type intervalTrigger struct {
	d time.Duration
}

// Every returns a trigger that fires every d.
func Every(d time.Duration) Trigger {
	return intervalTrigger{d: d}
}

func (t intervalTrigger) Next(now time.Time) time.Time {
	return now.Add(t.d)
}

// dailyTrigger fires once a day at a fixed UTC wall-clock time.
type dailyTrigger struct {
	hour, minute, second int
}

// DailyAt returns a trigger that fires daily at hh:mm:ss UTC.
func DailyAt(hour, minute, second int) Trigger {
	return dailyTrigger{hour: hour, minute: minute, second: second}
}

func (t dailyTrigger) Next(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), t.hour, t.minute, t.second, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
