package session

import (
	"context"
	"sync"
	"time"
)

// submitRetrySeconds is the pause between automatic submission retries
// after time-up.
const submitRetrySeconds = 5

// Runner drives a Session from wall-clock time and serializes every
// mutation onto one goroutine, matching the session's single-writer
// contract. UI or CLI code interacts with the session exclusively through
// Do, which runs the given function on the runner goroutine.
type Runner struct {
	s    *Session
	cmds chan func(context.Context, *Session)
	done chan struct{}

	mu      sync.Mutex
	stopped bool
}

// NewRunner wraps a session for wall-clock execution.
func NewRunner(s *Session) *Runner {
	return &Runner{
		s:    s,
		cmds: make(chan func(context.Context, *Session), 16),
		done: make(chan struct{}),
	}
}

// Run loads the exam and then pumps ticks and commands until the session
// reaches a terminal state or ctx is cancelled. Both the countdown and the
// autosave cadence derive from the same ticker, so leaving IN_PROGRESS
// silences both at once.
func (r *Runner) Run(ctx context.Context) error {
	defer r.stop(ctx)

	if err := r.s.Load(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sinceRetry := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			r.s.Tick(ctx)

			// Automatic retry of a time-up submission that failed.
			if r.s.State() == StateSubmitting && r.s.IsTimeUp() {
				sinceRetry++
				if sinceRetry >= submitRetrySeconds {
					sinceRetry = 0
					_ = r.s.RetrySubmit(ctx)
				}
			}

		case cmd := <-r.cmds:
			cmd(ctx, r.s)
		}

		switch r.s.State() {
		case StateSubmitted, StateFailed:
			return r.s.Err()
		}
	}
}

// stop closes the runner and then executes any commands that were accepted
// before it closed, so a true return from Do always means the command ran.
// Late commands observe a terminal session, where mutations are no-ops.
func (r *Runner) stop(ctx context.Context) {
	// Closing done first unblocks any Do waiting on a full command buffer.
	close(r.done)

	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	for {
		select {
		case cmd := <-r.cmds:
			cmd(ctx, r.s)
		default:
			return
		}
	}
}

// Do schedules f on the runner goroutine. It returns false once the
// runner has stopped, and f is then never executed.
func (r *Runner) Do(f func(ctx context.Context, s *Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}

	select {
	case r.cmds <- f:
		return true
	case <-r.done:
		return false
	}
}

// Done is closed when the runner goroutine exits.
func (r *Runner) Done() <-chan struct{} { return r.done }
