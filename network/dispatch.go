package network

import "sync"

// dispatcher runs queued jobs one at a time on a single goroutine, in the
// order they were queued. Queuing never blocks.
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []func()
	closed bool
	done   chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		done: make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)

	go d.run()

	return d
}

func (d *dispatcher) enqueue(job func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	d.jobs = append(d.jobs, job)
	d.cond.Signal()

	return true
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.jobs) == 0 && !d.closed {
			d.cond.Wait()
		}

		if len(d.jobs) == 0 {
			d.mu.Unlock()
			return
		}

		job := d.jobs[0]
		d.jobs[0] = nil
		d.jobs = d.jobs[1:]
		d.mu.Unlock()

		job()
	}
}

// stop rejects new jobs, waits for the queued ones to finish and ends the
// worker. It must not be called from a job.
func (d *dispatcher) stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()

	<-d.done
}
