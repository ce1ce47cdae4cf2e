package utils

import "time"

// Timer measures elapsed wall-clock time. [NewTimer] starts it; [Timer.Stop]
// captures the duration, which [Timer.GetDuration] returns afterwards.
type Timer struct {
	startTime time.Time
	duration  time.Duration
}

// NewTimer returns a running Timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Start restarts the measurement.
func (t *Timer) Start() {
	t.startTime = time.Now()
	t.duration = 0
}

// Stop captures and returns the time elapsed since the last Start.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.startTime)
	return t.duration
}

// GetDuration returns the duration captured by the last Stop, or zero.
func (t *Timer) GetDuration() time.Duration {
	return t.duration
}

// Milliseconds returns the captured duration as fractional milliseconds,
// the unit histograms are recorded in.
func (t *Timer) Milliseconds() float64 {
	return float64(t.duration) / float64(time.Millisecond)
}
