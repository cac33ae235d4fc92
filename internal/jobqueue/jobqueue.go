// Package jobqueue is a bounded, concurrent worker pool for serving
// multiple scheduling requests at once, grounded on
// original_source/scheduler/process_manager/{manager.py,runner.py}'s
// ProcessManager/StandardRunner (spec.md §5 "CONCURRENCY & RESOURCE
// MODEL": "Multiple concurrent requests are served by a bounded worker
// pool... the pool evicts the oldest job when full, imposes a per-job
// timeout, and invokes a done-callback on completion/termination").
//
// The core scheduler (internal/scheduler) is synchronous and does not
// depend on this package; cmd/scheduler's -serve flag routes its single
// request through it.
package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/litescript/gemscheduler/internal/metrics"
	"github.com/litescript/gemscheduler/internal/obslog"
)

// Status is the terminal state of a Job, mirroring runner.py's
// process.Result enum (TERMINATED/TIMEOUT/the implicit "done" case).
type Status int

const (
	StatusDone Status = iota
	StatusTimeout
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "DONE"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Task is the unit of work a Runner executes. It must respect ctx's
// deadline/cancellation.
type Task func(ctx context.Context) error

// Job is a scheduled unit of work (runner.py's Job dataclass: a process
// plus a monotonic sequence number used for FIFO ordering/eviction).
type Job struct {
	ID        uuid.UUID
	Sequence  uint64
	StartedAt time.Time

	done   chan struct{}
	status Status
	err    error
	cancel context.CancelFunc
}

// Done returns a channel closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the job's terminal status and error. Only meaningful
// after Done() has closed.
func (j *Job) Result() (Status, error) { return j.status, j.err }

// DoneCallback is invoked once a job reaches a terminal state, after it
// has been removed from the Runner's active set (runner.py's
// `add_done_callback`: "Useful to control the scheduling of new jobs").
type DoneCallback func(job *Job)

// Runner is a single bounded pool of concurrently-running jobs
// (runner.py's StandardRunner). When full, Schedule evicts the oldest
// running job to make room.
//
// spec.md §5 says the pool "evicts the oldest job when full"; the
// Python reference's `evict` actually pops `self.jobs[-1]`, the most
// recently scheduled job, not the oldest — an inversion from what its
// own docstring ("Kill the latest job") admits. This port follows
// spec.md's stated policy (oldest-first) rather than reproducing that
// discrepancy.
type Runner struct {
	maxJobs int
	timeout time.Duration

	// Name labels this runner's metrics (e.g. "realtime"/"standard");
	// left empty it defaults to "default".
	Name string

	log *obslog.Logger

	mu        sync.Mutex
	jobs      []*Job // ordered oldest-first by Sequence
	callbacks []DoneCallback
	nextSeq   uint64
}

// NewRunner builds a Runner that holds at most maxJobs concurrent jobs,
// each bounded by timeout (runner.py's StandardRunner(size), with the
// timeout plumbed in from ProcessManager.DEFAULT_TIMEOUT). log may be
// nil.
func NewRunner(maxJobs int, timeout time.Duration, log *obslog.Logger) *Runner {
	if maxJobs <= 0 {
		maxJobs = 1
	}
	if log == nil {
		log = obslog.Discard()
	}
	return &Runner{maxJobs: maxJobs, timeout: timeout, log: log}
}

// AddDoneCallback registers a callback invoked whenever a job finishes,
// in whatever order jobs complete.
func (r *Runner) AddDoneCallback(cb DoneCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Schedule attempts to start task as a new Job. If the pool is full, it
// evicts the oldest running job first (spec.md §5); it returns the new
// Job and true if task was started, or (nil, false) if eviction still
// left no room (maxJobs == 0, defensively unreachable via NewRunner).
func (r *Runner) Schedule(ctx context.Context, task Task) (*Job, bool) {
	r.mu.Lock()
	if len(r.jobs) >= r.maxJobs {
		r.evictOldestLocked()
	}
	if len(r.jobs) >= r.maxJobs {
		r.mu.Unlock()
		return nil, false
	}

	var jobCtx context.Context
	var cancel context.CancelFunc
	if r.timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	job := &Job{
		ID:        uuid.New(),
		Sequence:  r.nextSeq,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	r.nextSeq++
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()

	go r.run(jobCtx, job, task)
	return job, true
}

func (r *Runner) run(ctx context.Context, job *Job, task Task) {
	err := task(ctx)

	status := StatusDone
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		status = StatusTimeout
	case err == context.Canceled || ctx.Err() == context.Canceled:
		status = StatusTerminated
	}

	r.finish(job, status, err)
}

// finish removes job from the active set and fires every registered
// callback, mirroring runner.py's `terminated_job`.
func (r *Runner) finish(job *Job, status Status, err error) {
	job.cancel()
	job.status = status
	job.err = err

	r.mu.Lock()
	for i, j := range r.jobs {
		if j == job {
			r.jobs = append(r.jobs[:i], r.jobs[i+1:]...)
			break
		}
	}
	callbacks := append([]DoneCallback(nil), r.callbacks...)
	r.mu.Unlock()

	close(job.done)

	switch status {
	case StatusTimeout:
		name := r.Name
		if name == "" {
			name = "default"
		}
		metrics.JobTimeouts.WithLabelValues(name).Inc()
		r.log.Warn("job timed out", "job", job.ID, "sequence", job.Sequence)
	case StatusTerminated:
		// evicted or externally canceled; no warning needed, expected path
	default:
		r.log.Debug("job done", "job", job.ID, "sequence", job.Sequence)
	}

	for _, cb := range callbacks {
		cb(job)
	}
}

// evictOldestLocked terminates and drops the oldest job to free a slot.
// Callers must hold r.mu.
func (r *Runner) evictOldestLocked() {
	if len(r.jobs) == 0 {
		return
	}
	oldest := r.jobs[0]
	r.jobs = r.jobs[1:]
	r.log.Info("evicting oldest job to make room", "job", oldest.ID, "sequence", oldest.Sequence)

	r.mu.Unlock()
	oldest.cancel()
	r.mu.Lock()
}

// Terminate cancels and removes a specific running job, if still active
// (runner.py's `terminate`).
func (r *Runner) Terminate(id uuid.UUID) bool {
	r.mu.Lock()
	var target *Job
	for _, j := range r.jobs {
		if j.ID == id {
			target = j
			break
		}
	}
	r.mu.Unlock()
	if target == nil {
		return false
	}
	target.cancel()
	return true
}

// TerminateAll cancels every active job (runner.py's `terminate_all`,
// used by ProcessManager.shutdown on SIGINT).
func (r *Runner) TerminateAll() {
	r.mu.Lock()
	jobs := append([]*Job(nil), r.jobs...)
	r.mu.Unlock()
	for _, j := range jobs {
		j.cancel()
	}
}

// Active returns the number of currently running jobs.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
