package reporting

import (
	"context"
	"fmt"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
	"github.com/NexTeck/ExceptionHandler/pkg/errorlog"
)

// WorkerState is the recovery worker's current phase
type WorkerState int32

const (
	StateIdle WorkerState = iota
	StateDraining
	StatePersisting
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StatePersisting:
		return "persisting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText implements encoding.TextMarshaler
func (s WorkerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// spawn starts the worker unless one is already running
func (s *Service) spawn() {
	if !s.started.Load() {
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.metrics.RecordWorkerRun()
	s.wg.Add(1)
	go s.run()
}

// run drains the queue until it stays empty. Only one run is active at a
// time; the running flag is owned by the run that set it.
func (s *Service) run() {
	defer s.wg.Done()

	for {
		s.cycle(s.context())

		if !s.queue.Empty() {
			continue
		}

		if s.fatalDrained.Load() {
			s.escalate()
		}

		s.state.Store(int32(StateIdle))
		s.running.Store(false)

		// A report may have been enqueued after the check above while
		// running was still set; take the run back if nobody else has.
		if s.queue.Empty() || !s.running.CompareAndSwap(false, true) {
			return
		}
	}
}

// cycle persists one drained batch. A failed batch is discarded and
// surfaced through the notifier, never re-enqueued.
func (s *Service) cycle(ctx context.Context) {
	var batch []errorlog.Report

	defer func() {
		if v := recover(); v != nil {
			s.persistFailed(ctx, errsys.FromPanic(v), len(batch))
		}
	}()

	s.state.Store(int32(StateDraining))
	batch = s.queue.DrainAll()
	if hasFatal(batch) {
		s.fatalDrained.Store(true)
	}
	s.metrics.SetQueueDepth(s.queue.Len())
	s.metrics.RecordCycle()
	if len(batch) == 0 {
		return
	}

	s.state.Store(int32(StatePersisting))

	log, err := s.store.LoadOrCreate(ctx, errorlog.New)
	if err != nil {
		s.persistFailed(ctx, err, len(batch))
		return
	}

	log.AppendReports(batch...)

	if err := s.store.Save(ctx, log); err != nil {
		s.persistFailed(ctx, err, len(batch))
		return
	}

	s.metrics.RecordPersisted(len(batch))
	s.failing.Store(false)
	s.log.Debug("error log persisted", "reports", len(batch), "total", log.Len())
}

func hasFatal(batch []errorlog.Report) bool {
	for _, r := range batch {
		if r.Severity >= errsys.SeverityFatal {
			return true
		}
	}
	return false
}

// persistFailed reports a lost batch. Consecutive failures notify once, so a
// notifier that reports the failure again cannot keep the worker looping.
func (s *Service) persistFailed(ctx context.Context, err error, n int) {
	s.metrics.RecordDropped(n)

	f := errsys.NewBuilder(errsys.CodePersist).
		Wrap(fmt.Errorf("%w: %w", ErrPersistFailed, err)).
		Build()

	s.log.Error("failed to persist error reports",
		"code", f.Code,
		"dropped", n,
		"error", err,
	)

	if !s.failing.CompareAndSwap(false, true) {
		return
	}
	s.notify(ctx, s.ComposeMessage(f, "Error reports could not be saved.", errsys.SeveritySevere), KindError)
}

// escalate restarts the process once after a fatal report has been handled
func (s *Service) escalate() {
	if !s.cfg.RestartOnFatal {
		return
	}
	if !s.restarted.CompareAndSwap(false, true) {
		return
	}

	s.metrics.RecordRestart()
	s.log.Warn("fatal failure reported, restarting process")

	if err := s.restarter.Restart(); err != nil {
		f := errsys.NewBuilder(errsys.CodeRestart).Wrap(err).Build()
		s.log.Error("failed to restart process", "code", f.Code, "error", err)
		s.notify(s.context(), s.ComposeMessage(f, "The program could not be restarted.", errsys.SeverityFatal), KindError)
	}
}
