package scheduler

import (
	"time"
)

// minInterval guards against a zero or negative interval spinning the loop.
const minInterval = time.Second

// IntervalSchedule runs a job every Interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule. Intervals below one second are raised to one second.
func Every(interval time.Duration) *IntervalSchedule {
	if interval < minInterval {
		interval = minInterval
	}
	return &IntervalSchedule{Interval: interval}
}

// Next returns t plus the interval.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the schedule in "@every 5m0s" form.
func (s *IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}
