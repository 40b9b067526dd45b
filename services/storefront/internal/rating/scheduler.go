package rating

import "time"

// Scheduler runs UI pacing callbacks. Callbacks are not cancelled when the
// session changes; they must re-check state before acting.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Timings are the pacing delays of the rating modal.
type Timings struct {
	Advance   time.Duration // success acknowledgement before the next item
	AutoClose time.Duration // summary shown before the modal closes itself
	Banner    time.Duration // delay between a banner trigger and the prompt
}

func DefaultTimings() Timings {
	return Timings{
		Advance:   1500 * time.Millisecond,
		AutoClose: 4 * time.Second,
		Banner:    3 * time.Second,
	}
}

type timerScheduler struct{}

// NewTimerScheduler returns a Scheduler backed by time.AfterFunc.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
