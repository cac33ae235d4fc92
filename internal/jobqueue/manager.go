package jobqueue

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"

	"github.com/litescript/gemscheduler/internal/obslog"
)

// Mode selects which Runner a task is scheduled on, mirroring
// manager.py's TaskType.REALTIME/STANDARD.
type Mode int

const (
	ModeRealtime Mode = iota
	ModeStandard
)

// DefaultTimeout and DefaultSize mirror manager.py's
// DEFAULT_TIMEOUT/DEFAULT_SIZE module constants.
const (
	DefaultTimeout = 10 * time.Second
	DefaultSize    = 5
)

// Manager is the direct port of manager.py's ProcessManager: one
// single-slot Runner for realtime requests and one bounded Runner for
// everything else.
type Manager struct {
	Realtime *Runner
	Standard *Runner
}

// NewManager builds a Manager. size is the Standard runner's capacity
// (manager.py's config.process_manager.size); OPERATION mode callers
// should pass size=1, matching setup_with's "if mode is OPERATION:
// pm.size = 1" override.
func NewManager(size int, timeout time.Duration, log *obslog.Logger) *Manager {
	realtime := NewRunner(1, timeout, log)
	realtime.Name = "realtime"
	standard := NewRunner(size, timeout, log)
	standard.Name = "standard"
	return &Manager{Realtime: realtime, Standard: standard}
}

// Schedule dispatches task on the runner matching mode.
func (m *Manager) Schedule(ctx context.Context, mode Mode, task Task) (*Job, bool) {
	switch mode {
	case ModeRealtime:
		return m.Realtime.Schedule(ctx, task)
	default:
		return m.Standard.Schedule(ctx, task)
	}
}

// Shutdown terminates every active job on both runners (manager.py's
// ProcessManager.shutdown, invoked on SIGINT).
func (m *Manager) Shutdown() {
	m.Realtime.TerminateAll()
	m.Standard.TerminateAll()
}

// ErrJobTimedOut is returned by ScheduleAndWait when a job's context
// deadline elapses before task completes.
var ErrJobTimedOut = errors.New("jobqueue: job timed out")

// ScheduleAndWait schedules task and blocks until it reaches a terminal
// state, returning its error (or ErrJobTimedOut on a timeout, or the
// task's own error on success/failure). Intended for callers that want
// a synchronous call with the pool's bounded-concurrency/eviction
// semantics underneath, rather than the fire-and-forget done-callback
// style runner.py itself uses.
func (m *Manager) ScheduleAndWait(ctx context.Context, mode Mode, task Task) error {
	job, ok := m.Schedule(ctx, mode, task)
	if !ok {
		return errors.New("jobqueue: pool has no room for a new job")
	}
	<-job.Done()
	status, err := job.Result()
	if status == StatusTimeout {
		return ErrJobTimedOut
	}
	return err
}

// ScheduleWithRetry runs task through the pool, retrying it (via
// github.com/avast/retry-go) whenever it times out — the OPERATION-mode
// behavior spec.md §5 implies by distinguishing a TIMEOUT result from
// normal termination: a timed-out scheduling request is worth
// re-dispatching rather than failing outright, since the core's
// computation is deterministic given the same inputs.
func (m *Manager) ScheduleWithRetry(ctx context.Context, mode Mode, task Task, attempts uint) error {
	return retry.Do(
		func() error {
			return m.ScheduleAndWait(ctx, mode, task)
		},
		retry.Attempts(attempts),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrJobTimedOut)
		}),
		retry.DelayType(retry.BackOffDelay),
	)
}
