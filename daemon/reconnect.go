package daemon

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// reconnector schedules new attempts with an exponential backoff
type reconnector struct {
	mu      sync.Mutex
	log     Logger
	backoff *backoff.ExponentialBackOff
	timer   *time.Timer
	stopped bool
	// attempt reports false when the attempt has to be retried
	attempt func() bool
}

func newReconnector(initial time.Duration, maxInterval time.Duration, attempt func() bool, log Logger) *reconnector {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	return &reconnector{
		log:     log,
		backoff: b,
		attempt: attempt,
	}
}

func (r *reconnector) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	if r.timer != nil {
		r.timer.Stop()
	}

	delay := r.backoff.NextBackOff()

	r.log.Infof("Reconnecting in %v", delay)

	r.timer = time.AfterFunc(delay, r.fire)
}

func (r *reconnector) fire() {
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()

	if stopped {
		return
	}

	if !r.attempt() {
		r.schedule()
	}
}

// reset cancels a pending attempt and starts the backoff over
func (r *reconnector) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	r.backoff.Reset()
}

func (r *reconnector) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
