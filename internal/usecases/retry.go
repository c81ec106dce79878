package usecases

import "time"

// RetryPolicy bounds the session initialization retry loop. Sleep is
// injectable so tests can run the loop against a fake clock.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration)
}

// DefaultRetryPolicy mirrors the activation behavior the front-end
// expects: three attempts, five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Delay:    5 * time.Second,
		Sleep:    time.Sleep,
	}
}

// Run invokes fn up to Attempts times, sleeping Delay between
// attempts. Returns nil on the first success, or the last error once
// attempts are exhausted.
func (p RetryPolicy) Run(fn func() error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < p.Attempts-1 {
			sleep(p.Delay)
		}
	}
	return err
}
