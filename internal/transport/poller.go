package transport

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrStopPolling ends a poll job when returned from its PollFunc.
var ErrStopPolling = errors.New("stop polling")

type PollFunc func(ctx context.Context) error

type pollJob struct {
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
}

// Poller runs cancellable fixed-interval fetch loops, one per resource.
type Poller struct {
	mu   sync.Mutex
	jobs map[string]*pollJob
}

func NewPoller() *Poller {
	return &Poller{jobs: make(map[string]*pollJob)}
}

// Start runs fn now and then every interval until cancelled, until fn
// returns ErrStopPolling, or until ctx ends. A running job for the same
// resource is replaced. fn must not call Start or Stop for its own resource.
func (p *Poller) Start(ctx context.Context, resource string, interval time.Duration, fn PollFunc) (cancel func()) {
	p.Stop(resource)

	jobCtx, jobCancel := context.WithCancel(ctx)
	job := &pollJob{cancel: jobCancel, done: make(chan struct{}), interval: interval}

	p.mu.Lock()
	p.jobs[resource] = job
	p.mu.Unlock()

	go p.run(jobCtx, resource, job, fn)

	return func() { p.stopJob(job) }
}

func (p *Poller) run(ctx context.Context, resource string, job *pollJob, fn PollFunc) {
	defer func() {
		p.mu.Lock()
		if p.jobs[resource] == job {
			delete(p.jobs, resource)
		}
		p.mu.Unlock()
		close(job.done)
	}()

	tick := func() bool {
		err := fn(ctx)
		if errors.Is(err, ErrStopPolling) {
			slog.Debug("Polling finished", "component", "poller", "resource", resource)
			return false
		}
		if err != nil && ctx.Err() == nil {
			slog.Warn("Poll failed", "component", "poller", "resource", resource, "error", err)
		}
		return ctx.Err() == nil
	}

	if !tick() {
		return
	}

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !tick() {
				return
			}
		}
	}
}

// Stop cancels the job for resource and waits for it to exit.
func (p *Poller) Stop(resource string) {
	p.mu.Lock()
	job := p.jobs[resource]
	p.mu.Unlock()
	if job != nil {
		p.stopJob(job)
	}
}

func (p *Poller) stopJob(job *pollJob) {
	job.cancel()
	<-job.done
}

// StopAll cancels every job and waits for all of them.
func (p *Poller) StopAll() {
	p.mu.Lock()
	jobs := make([]*pollJob, 0, len(p.jobs))
	for _, job := range p.jobs {
		jobs = append(jobs, job)
	}
	p.mu.Unlock()

	for _, job := range jobs {
		job.cancel()
	}
	for _, job := range jobs {
		<-job.done
	}
}

func (p *Poller) Running(resource string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.jobs[resource]
	return ok
}

// Active lists the resources with a running job.
func (p *Poller) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.jobs))
	for resource := range p.jobs {
		out = append(out, resource)
	}
	sort.Strings(out)
	return out
}
