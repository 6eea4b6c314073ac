package reporting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NexTeck/ExceptionHandler/pkg/configstore"
	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
	"github.com/NexTeck/ExceptionHandler/pkg/errorlog"
	"github.com/NexTeck/ExceptionHandler/pkg/logger"
)

var (
	// ErrPersistFailed wraps failures to write a batch to the error log
	ErrPersistFailed = errors.New("persisting error reports failed")
	// ErrNotStarted is returned by Flush before Start
	ErrNotStarted = errors.New("reporting service not started")
	// ErrShutdown is returned by Start after Shutdown
	ErrShutdown = errors.New("reporting service shut down")
)

// Config holds reporting behavior
type Config struct {
	// ProgramName titles operator notifications
	ProgramName string

	// ShowProgrammerErrors includes the failure message in notifications
	ShowProgrammerErrors bool
	// ShowErrorDetails adds the numbered cause chain; it only applies
	// together with ShowProgrammerErrors
	ShowErrorDetails bool

	// SaveReports persists reports to the error log. When off a fatal
	// report restarts immediately.
	SaveReports bool
	// RestartOnFatal relaunches the process after a fatal report
	RestartOnFatal bool

	// NotifyRateWindow limits repeat notifications per failure code.
	// Zero disables sampling.
	NotifyRateWindow time.Duration
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		ProgramName:    filepath.Base(os.Args[0]),
		SaveReports:    true,
		RestartOnFatal: true,
	}
}

// Service is the process's fault-reporting pipeline. Report may be called
// from any goroutine; persistence happens on a single background worker.
type Service struct {
	cfg       Config
	store     *configstore.Store[errorlog.Log]
	notifier  Notifier
	restarter Restarter
	log       *logger.Logger
	metrics   *Metrics
	sampling  *SamplingRegistry
	clock     func() time.Time
	stderr    io.Writer

	queue    Queue
	severity SeverityTracker

	running   atomic.Bool
	started   atomic.Bool
	closed    atomic.Bool
	restarted atomic.Bool
	failing   atomic.Bool
	state     atomic.Int32

	// a drained batch held a fatal report; restart once the queue is empty
	fatalDrained atomic.Bool

	baseCtx atomic.Pointer[context.Context]
	wg      sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithStore sets the error log store. Without one reports are not persisted.
func WithStore(store *configstore.Store[errorlog.Log]) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithNotifier sets the operator notifier
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithRestarter sets the restart action
func WithRestarter(r Restarter) Option {
	return func(s *Service) {
		s.restarter = r
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock sets the time source for report timestamps
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithStderr sets where failures of the reporting path itself are written
func WithStderr(w io.Writer) Option {
	return func(s *Service) {
		s.stderr = w
	}
}

// New creates a reporting service. Call Start before reports are persisted.
func New(cfg Config, opts ...Option) *Service {
	if !cfg.ShowProgrammerErrors {
		cfg.ShowErrorDetails = false
	}

	s := &Service{
		cfg:    cfg,
		clock:  time.Now,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.restarter == nil {
		s.restarter = &ExecRestarter{}
	}
	if s.log == nil {
		s.log = logger.Global().WithComponent("reporting")
	}
	if s.metrics == nil {
		s.metrics, _ = NewMetrics(nil)
	}
	s.sampling = NewSamplingRegistry(cfg.NotifyRateWindow)

	return s
}

// Config returns the service configuration
func (s *Service) Config() Config {
	return s.cfg
}

// Start enables the recovery worker. Reports queued before Start are
// persisted now. In-flight cycles are not cancelled with ctx.
func (s *Service) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrShutdown
	}
	base := context.WithoutCancel(ctx)
	s.baseCtx.Store(&base)
	s.started.Store(true)

	s.log.Info("reporting service started",
		"persist", s.persisting(),
		"restart_on_fatal", s.cfg.RestartOnFatal,
	)

	if !s.queue.Empty() {
		s.spawn()
	}
	return nil
}

// Shutdown stops accepting reports for persistence, flushes what is queued
// and closes the store.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var flushErr error
	if s.started.Load() {
		flushErr = s.Flush(ctx)
		if flushErr == nil {
			s.wg.Wait()
		}
	}

	var closeErr error
	if s.store != nil && flushErr == nil {
		closeErr = s.store.Close()
	}

	s.log.Info("reporting service stopped", "stats", s.Stats())
	return errors.Join(flushErr, closeErr)
}

// Flush waits until the queue is empty and the worker is idle
func (s *Service) Flush(ctx context.Context) error {
	if !s.started.Load() {
		return ErrNotStarted
	}

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !s.queue.Empty() {
			s.spawn()
		} else if !s.running.Load() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Report captures err and hands it to the pipeline. userMessage is shown to
// the operator; severity controls persistence and escalation. Report never
// blocks on persistence and never panics. A nil err is ignored.
func (s *Service) Report(err error, userMessage string, sev errsys.Severity) {
	if err == nil {
		return
	}
	defer s.guard()
	s.ReportFailure(errsys.Capture(err), userMessage, sev)
}

// Capture reports err as severe with no user message
func (s *Service) Capture(err error) {
	if err == nil {
		return
	}
	defer s.guard()
	s.ReportFailure(errsys.Capture(err), "", errsys.SeveritySevere)
}

// ReportFailure hands an already captured failure to the pipeline
func (s *Service) ReportFailure(f *errsys.Failure, userMessage string, sev errsys.Severity) {
	if f == nil {
		return
	}
	defer s.guard()

	s.metrics.RecordReport(sev)

	// The report is queued before the severity is raised; the worker
	// escalates on the fatal reports it drains, never on the tracker alone.
	persisted := false
	if sev > errsys.SeveritySimple {
		switch {
		case s.closed.Load():
			s.log.Warn("report after shutdown not persisted", "code", f.Code)
		case s.persisting():
			s.queue.Enqueue(errorlog.NewReport(f, sev, s.clock()))
			s.metrics.SetQueueDepth(s.queue.Len())
			persisted = true
		}
	}
	s.metrics.SetSeverity(s.severity.Raise(sev))
	if persisted {
		s.spawn()
	}

	s.log.Debug("failure reported",
		"code", f.Code,
		"severity", sev.String(),
		"trace_id", f.TraceID,
		"message", f.Message,
	)

	if msg := s.ComposeMessage(f, userMessage, sev); msg != "" {
		if ok, repeats := s.sampling.Allow(f, sev, s.clock()); ok {
			if repeats > 0 {
				msg = fmt.Sprintf("%s\n(repeated %d more times)", msg, repeats)
			}
			s.notify(s.context(), msg, kindFor(sev))
		} else {
			s.metrics.RecordSuppressed()
		}
	}

	// Nothing will be persisted, so nothing defers the restart. This
	// includes fatal reports arriving after Shutdown.
	if sev >= errsys.SeverityFatal && !persisted {
		s.escalate()
	}
}

// ComposeMessage builds the operator text for f. Programmer mode shows the
// failure message and, with details, each cause numbered. Otherwise only a
// fatal failure adds its support code. The result may be empty.
func (s *Service) ComposeMessage(f *errsys.Failure, userMessage string, sev errsys.Severity) string {
	var lines []string
	if userMessage = strings.TrimSpace(userMessage); userMessage != "" {
		lines = append(lines, userMessage)
	}

	switch {
	case s.cfg.ShowProgrammerErrors:
		lines = append(lines, f.Message)
		if s.cfg.ShowErrorDetails {
			for i, c := range f.Causes {
				lines = append(lines, fmt.Sprintf("%d: %s", i+1, c))
			}
		}
	case sev >= errsys.SeverityFatal:
		lines = append(lines, "Support code: "+errsys.SupportCode(f))
	}

	return strings.Join(lines, "\n")
}

// Go runs fn on its own goroutine. A returned error is reported as severe,
// a panic as fatal.
func (s *Service) Go(fn func() error, userMessage string) {
	go func() {
		defer s.Recover(userMessage, errsys.SeverityFatal)

		if err := fn(); err != nil {
			f := errsys.Capture(err)
			if f.Code == errsys.CodeUnclassified {
				f = errsys.NewBuilder(errsys.CodeTaskFailed).Wrap(err).Build()
			}
			s.ReportFailure(f, userMessage, errsys.SeveritySevere)
		}
	}()
}

// Recover reports a panic in progress. It must be deferred directly:
//
//	defer svc.Recover("", errors.SeverityFatal)
func (s *Service) Recover(userMessage string, sev errsys.Severity) {
	if v := recover(); v != nil {
		s.ReportFailure(errsys.FromPanic(v), userMessage, sev)
	}
}

// StoreFailureReporter returns a configstore hook that reports failed
// default saves of application configuration.
func (s *Service) StoreFailureReporter() configstore.SaveFailureFunc {
	return func(key string, err error) {
		s.Report(err, fmt.Sprintf("Configuration %q could not be saved.", key), errsys.SeveritySevere)
	}
}

// Severity returns the worst severity reported so far
func (s *Service) Severity() errsys.Severity {
	return s.severity.Peek()
}

// State returns the worker state
func (s *Service) State() WorkerState {
	return WorkerState(s.state.Load())
}

// Sampling returns the notification sampling registry, nil when disabled
func (s *Service) Sampling() *SamplingRegistry {
	return s.sampling
}

// Stats returns a snapshot of the pipeline counters
func (s *Service) Stats() Stats {
	st := s.metrics.snapshot()
	st.QueueDepth = s.queue.Len()
	st.Severity = s.severity.Peek()
	st.State = s.State()
	return st
}

// context returns the context handed to Start, detached from its cancellation
func (s *Service) context() context.Context {
	if ctx := s.baseCtx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

func (s *Service) persisting() bool {
	return s.store != nil && s.cfg.SaveReports
}

// notify calls the notifier, containing any panic it raises
func (s *Service) notify(ctx context.Context, msg string, kind Kind) Response {
	defer s.guard()

	if s.cfg.ProgramName != "" {
		ctx = ContextWithTitle(ctx, s.cfg.ProgramName)
	}

	resp, err := s.notifier.Notify(ctx, msg, kind)
	if err != nil {
		s.log.Warn("notifier failed", "kind", kind.String(), "error", err)
		return ResponseNone
	}
	s.metrics.RecordNotification(kind)
	return resp
}

// guard stops a panic inside the reporting path. The panic is written to
// stderr and never reported, which could recurse.
func (s *Service) guard() {
	if v := recover(); v != nil {
		fmt.Fprintf(s.stderr, "exhandler: panic while reporting failure: %v\n", v)
	}
}

func kindFor(sev errsys.Severity) Kind {
	if sev == errsys.SeveritySimple {
		return KindWarning
	}
	return KindError
}
