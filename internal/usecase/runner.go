package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
	"ReviewPublisher/internal/schedule"
	"ReviewPublisher/internal/selector"
)

const (
	defaultPollInterval = time.Second
	cancelledMessage    = "cancelled"
)

var (
	// ErrRunInProgress is returned when a batch is started or reset while another one is active.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrNoKeywords is returned for a batch without any non-blank keyword.
	ErrNoKeywords = errors.New("at least one keyword is required")
)

// Executor runs a single keyword pipeline. *Pipeline satisfies it.
type Executor interface {
	Execute(ctx context.Context, req WorkflowRequest) domain.WorkflowResult
}

var _ Executor = (*Pipeline)(nil)

// BatchRequest describes one multi-keyword run. Settings.Enabled switches
// slot pacing on.
type BatchRequest struct {
	Keywords     []string
	Model        domain.AIModel
	ProductCount int
	SearchLimit  int
	Selection    selector.Options
	Settings     domain.PublishSettings
}

// RunSnapshot is the observable state of the runner: the overall workflow
// state plus the per-keyword ledger.
type RunSnapshot struct {
	ID         string                 `json:"id,omitempty"`
	Model      domain.AIModel         `json:"model,omitempty"`
	State      domain.WorkflowState   `json:"state"`
	Results    []domain.KeywordResult `json:"results"`
	StartedAt  *time.Time             `json:"startedAt,omitempty"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
}

// Running reports whether the batch is still executing.
func (s RunSnapshot) Running() bool {
	return s.State.Status == domain.StatusRunning
}

// RunnerDeps wires the runner's collaborators.
type RunnerDeps struct {
	Executor     Executor
	Sinks        []ports.ResultSink
	Notifier     ports.Notifier
	Logger       *slog.Logger
	Now          func() time.Time
	PollInterval time.Duration
	// OnChange receives a fresh snapshot after every state change. It runs on
	// the batch goroutine.
	OnChange func(RunSnapshot)
}

// Runner sequences keyword pipelines, optionally paced by publish slots.
// Only one batch runs at a time.
type Runner struct {
	exec     Executor
	sinks    []ports.ResultSink
	notifier ports.Notifier
	logger   *slog.Logger
	now      func() time.Time
	poll     time.Duration
	onChange func(RunSnapshot)

	stopRequested atomic.Bool

	mu       sync.Mutex
	running  bool
	snapshot RunSnapshot
	done     chan struct{}
}

// NewRunner builds a runner in the idle state.
func NewRunner(deps RunnerDeps) *Runner {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	poll := deps.PollInterval
	if poll <= 0 || poll > defaultPollInterval {
		poll = defaultPollInterval
	}
	return &Runner{
		exec:     deps.Executor,
		sinks:    deps.Sinks,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		now:      now,
		poll:     poll,
		onChange: deps.OnChange,
		snapshot: idleSnapshot(),
	}
}

// Run executes a batch and blocks until it ends.
func (r *Runner) Run(ctx context.Context, req BatchRequest) (RunSnapshot, error) {
	keywords, err := r.begin(req)
	if err != nil {
		return r.Snapshot(), err
	}
	r.loop(ctx, req, keywords)
	return r.Snapshot(), nil
}

// Start launches a batch in the background and returns once it is registered.
func (r *Runner) Start(ctx context.Context, req BatchRequest) (RunSnapshot, error) {
	keywords, err := r.begin(req)
	if err != nil {
		return r.Snapshot(), err
	}
	snap := r.Snapshot()

	done := make(chan struct{})
	r.mu.Lock()
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.loop(context.WithoutCancel(ctx), req, keywords)
	}()
	return snap, nil
}

// Wait blocks until the batch launched by Start has returned or ctx ends.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for batch: %w", ctx.Err())
	}
}

// Stop asks the active batch to halt before its next keyword. An in-flight
// keyword is allowed to finish.
func (r *Runner) Stop() {
	r.stopRequested.Store(true)
}

// Reset returns the runner to the idle snapshot and clears a pending stop.
func (r *Runner) Reset() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	r.stopRequested.Store(false)
	r.snapshot = idleSnapshot()
	snap := cloneSnapshot(r.snapshot)
	r.mu.Unlock()

	r.emit(snap)
	return nil
}

// Snapshot returns a copy of the current state.
func (r *Runner) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneSnapshot(r.snapshot)
}

func (r *Runner) begin(req BatchRequest) ([]string, error) {
	keywords := normalizeKeywords(req.Keywords)
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	model := req.Model
	if model == "" {
		model = domain.ModelClaude
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.stopRequested.Store(false)

	started := r.now()
	results := make([]domain.KeywordResult, len(keywords))
	for i, kw := range keywords {
		results[i] = domain.KeywordResult{Index: i, Keyword: kw, Status: domain.KeywordPending}
	}
	if req.Settings.Enabled {
		for i, slot := range schedule.GenerateSlots(len(keywords), req.Settings, started) {
			at := slot.Date
			results[i].ScheduledTime = &at
		}
	}

	r.snapshot = RunSnapshot{
		ID:    uuid.NewString(),
		Model: model,
		State: domain.InitialState().With(func(s *domain.WorkflowState) {
			s.Status = domain.StatusRunning
			s.Message = fmt.Sprintf("Starting batch of %d keywords...", len(keywords))
			s.TotalKeywords = len(keywords)
		}),
		Results:   results,
		StartedAt: &started,
	}
	snap := cloneSnapshot(r.snapshot)
	r.mu.Unlock()

	r.log().Info("batch started", "run_id", snap.ID, "keywords", len(keywords), "model", model, "scheduled", req.Settings.Enabled)
	r.emit(snap)
	return keywords, nil
}

func (r *Runner) loop(ctx context.Context, req BatchRequest, keywords []string) {
	log := r.log().With("run_id", r.Snapshot().ID)
	stopped := false

	for i, keyword := range keywords {
		if r.shouldStop(ctx) {
			stopped = true
			break
		}

		if slot := r.Snapshot().Results[i].ScheduledTime; slot != nil && slot.After(r.now()) {
			r.update(func(s *RunSnapshot) {
				s.Results[i].Status = domain.KeywordWaiting
				s.State.CurrentKeywordIndex = i
				s.State.NextScheduledTime = slot
				s.State.Message = fmt.Sprintf("Waiting until %s for %q...", slot.Format("2006-01-02 15:04"), keyword)
			})
			log.Info("waiting for slot", "keyword", keyword, "slot", *slot)
			if !r.waitUntil(ctx, *slot) {
				stopped = true
				break
			}
		}

		started := r.now()
		r.update(func(s *RunSnapshot) {
			s.Results[i].Status = domain.KeywordRunning
			s.Results[i].StartedAt = &started
			s.State.CurrentKeywordIndex = i
			s.State.NextScheduledTime = nil
		})
		log.Info("keyword started", "keyword", keyword, "index", i)

		result := r.execute(ctx, WorkflowRequest{
			Keyword:      keyword,
			ProductCount: req.ProductCount,
			SearchLimit:  req.SearchLimit,
			Model:        r.Snapshot().Model,
			Selection:    req.Selection,
			Settings:     req.Settings,
			OnProgress: func(state domain.WorkflowState) {
				r.update(func(s *RunSnapshot) {
					s.State = mergeKeywordState(s.State, state)
				})
			},
		})

		finished := r.now()
		var entry domain.KeywordResult
		r.update(func(s *RunSnapshot) {
			kr := &s.Results[i]
			kr.FinishedAt = &finished
			kr.Result = &result
			if result.Success {
				kr.Status = domain.KeywordCompleted
			} else {
				kr.Status = domain.KeywordError
				kr.Error = result.Error
			}
			s.State = mergeKeywordState(s.State, result.State)
			entry = cloneKeywordResult(*kr)
		})

		if result.Success {
			log.Info("keyword completed", "keyword", keyword, "duration", finished.Sub(started))
		} else {
			log.Warn("keyword failed", "keyword", keyword, "error", result.Error)
		}
		r.dispatch(ctx, entry)
	}

	finished := r.now()
	r.mu.Lock()
	r.snapshot.FinishedAt = &finished
	r.snapshot.State = r.snapshot.State.With(func(s *domain.WorkflowState) {
		s.NextScheduledTime = nil
		s.Warning = ""
		if stopped {
			s.Status = domain.StatusError
			s.Message = cancelledMessage
			s.Error = cancelledMessage
			s.ErrorKind = domain.KindCancelled
			return
		}
		s.Status = domain.StatusCompleted
		s.Message = "Batch completed."
		s.Error = ""
		s.ErrorKind = ""
	})
	r.running = false
	snap := cloneSnapshot(r.snapshot)
	r.mu.Unlock()

	log.Info("batch finished", "status", snap.State.Status, "stopped", stopped)
	r.emit(snap)
	r.notify(ctx, snap)
}

// execute shields the batch from a keyword pipeline that panics.
func (r *Runner) execute(ctx context.Context, req WorkflowRequest) (result domain.WorkflowResult) {
	defer func() {
		if rec := recover(); rec != nil {
			err := domain.NewError(domain.KindValidationFailed, fmt.Sprintf("keyword pipeline panicked: %v", rec), nil)
			result = domain.WorkflowResult{
				Keyword: req.Keyword,
				Error:   err.Message,
				Err:     err,
				State: domain.InitialState().With(func(s *domain.WorkflowState) {
					s.Status = domain.StatusError
					s.Message = err.Message
					s.Error = err.Message
					s.ErrorKind = err.Kind
				}),
			}
		}
	}()
	if r.exec == nil {
		err := domain.NewError(domain.KindValidationFailed, "runner has no executor", nil)
		return domain.WorkflowResult{Keyword: req.Keyword, Error: err.Message, Err: err}
	}
	return r.exec.Execute(ctx, req)
}

// waitUntil sleeps in poll-sized ticks so a stop request is honoured within one tick.
func (r *Runner) waitUntil(ctx context.Context, until time.Time) bool {
	for {
		if r.shouldStop(ctx) {
			return false
		}
		remaining := until.Sub(r.now())
		if remaining <= 0 {
			return true
		}
		timer := time.NewTimer(min(remaining, r.poll))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (r *Runner) shouldStop(ctx context.Context) bool {
	return r.stopRequested.Load() || ctx.Err() != nil
}

func (r *Runner) update(fn func(*RunSnapshot)) {
	r.mu.Lock()
	fn(&r.snapshot)
	snap := cloneSnapshot(r.snapshot)
	r.mu.Unlock()
	r.emit(snap)
}

func (r *Runner) emit(snap RunSnapshot) {
	if r.onChange != nil {
		r.onChange(snap)
	}
}

func (r *Runner) dispatch(ctx context.Context, entry domain.KeywordResult) {
	model := r.Snapshot().Model
	for _, sink := range r.sinks {
		if sink == nil {
			continue
		}
		if err := sink.KeywordFinished(context.WithoutCancel(ctx), model, entry); err != nil {
			r.log().Warn("result sink failed", "keyword", entry.Keyword, "error", err)
		}
	}
}

func (r *Runner) notify(ctx context.Context, snap RunSnapshot) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.PublishDigest(context.WithoutCancel(ctx), Digest(snap)); err != nil {
		r.log().Warn("batch digest failed", "error", err)
	}
}

func (r *Runner) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Digest renders a plain-text batch summary.
func Digest(snap RunSnapshot) string {
	var b strings.Builder
	succeeded := 0
	for _, kr := range snap.Results {
		if kr.Status == domain.KeywordCompleted {
			succeeded++
		}
	}
	fmt.Fprintf(&b, "Review batch %s: %d/%d keywords published", snap.State.Status, succeeded, len(snap.Results))
	if snap.State.ErrorKind == domain.KindCancelled {
		b.WriteString(" (cancelled)")
	}
	b.WriteString("\n")
	for _, kr := range snap.Results {
		switch kr.Status {
		case domain.KeywordCompleted:
			link := ""
			if kr.Result != nil && kr.Result.PublishResponse != nil {
				link = kr.Result.PublishResponse.Link
			}
			fmt.Fprintf(&b, "[ok] %s %s\n", kr.Keyword, link)
		case domain.KeywordError:
			fmt.Fprintf(&b, "[error] %s: %s\n", kr.Keyword, kr.Error)
		default:
			fmt.Fprintf(&b, "[%s] %s\n", kr.Status, kr.Keyword)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// mergeKeywordState lays a keyword's pipeline snapshot over the batch state.
// The batch stays running until the loop ends.
func mergeKeywordState(batch, keyword domain.WorkflowState) domain.WorkflowState {
	return keyword.With(func(s *domain.WorkflowState) {
		s.Status = domain.StatusRunning
		s.CurrentKeywordIndex = batch.CurrentKeywordIndex
		s.TotalKeywords = batch.TotalKeywords
		s.NextScheduledTime = batch.NextScheduledTime
		if s.TotalSteps == 0 {
			s.TotalSteps = domain.TotalSteps
		}
	})
}

func normalizeKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func idleSnapshot() RunSnapshot {
	return RunSnapshot{State: domain.InitialState(), Results: []domain.KeywordResult{}}
}

func cloneSnapshot(s RunSnapshot) RunSnapshot {
	out := s
	out.Results = make([]domain.KeywordResult, len(s.Results))
	for i, kr := range s.Results {
		out.Results[i] = cloneKeywordResult(kr)
	}
	return out
}

func cloneKeywordResult(kr domain.KeywordResult) domain.KeywordResult {
	out := kr
	if kr.Result != nil {
		res := *kr.Result
		out.Result = &res
	}
	return out
}
