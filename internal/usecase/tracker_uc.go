package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pdf-summarizer/internal/domain"
	"pdf-summarizer/internal/domain/model"
	"pdf-summarizer/internal/domain/ports/adapter"
	"pdf-summarizer/internal/infra/logging"
	"pdf-summarizer/internal/infra/metrics"
	"pdf-summarizer/internal/infra/sched"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Messages resolves user-facing text. *i18n.Translator satisfies it.
type Messages interface {
	T(key string, args ...interface{}) string
}

type TrackerConfig struct {
	Poll           sched.PollerConfig
	MaxUploadBytes int64 // 0 disables the check
}

// TrackedJob is a snapshot of a job together with its presentation state.
type TrackedJob struct {
	model.Job
	Expanded bool `json:"expanded"`
}

type trackedEntry struct {
	job      model.Job
	expanded bool
	poller   *sched.Poller
	done     chan struct{} // closed when job reaches a terminal status
}

// TrackerUseCase submits documents to the summarization service and follows
// each job until it is done or failed. Jobs are keyed by id and kept in
// submission order; nothing is persisted.
type TrackerUseCase struct {
	api  adapter.SummarizerAPI
	pdf  adapter.PDFInspector
	msgs Messages
	cfg  TrackerConfig
	log  *zerolog.Logger
	now  func() time.Time

	// pollers run under ctx so they outlive the request that created them.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	jobs   map[string]*trackedEntry
	order  []string
	closed bool
}

// NewTrackerUseCase constructs a tracker. pdf may be nil to skip local PDF validation.
func NewTrackerUseCase(api adapter.SummarizerAPI, pdf adapter.PDFInspector, msgs Messages, cfg TrackerConfig, logger *zerolog.Logger) *TrackerUseCase {
	l := logger.With().Str("component", "JobTracker").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &TrackerUseCase{
		api:    api,
		pdf:    pdf,
		msgs:   msgs,
		cfg:    cfg,
		log:    &l,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*trackedEntry),
	}
}

// Submit sends the document to the service and starts tracking the returned job.
// Every failure is a *domain.SubmitError whose Message can be shown to the user;
// no job is recorded in that case.
func (uc *TrackerUseCase) Submit(ctx context.Context, sub model.Submission) (TrackedJob, error) {
	traceID := uuid.NewString()
	ctx = logging.WithTraceID(ctx, traceID)
	log := logging.With(ctx, uc.log)
	defer logging.TraceDuration(log, "Tracker.Submit")()

	if err := sub.Validate(); err != nil {
		metrics.IncSubmitFailure()
		key := "err_submit"
		if errors.Is(err, domain.ErrNoInput) {
			key = "err_no_input"
		}
		return TrackedJob{}, &domain.SubmitError{Message: uc.msgs.T(key), Cause: err}
	}

	var (
		jobID string
		err   error
	)
	if sub.File != nil {
		if err := uc.checkUpload(sub.File, log); err != nil {
			metrics.IncSubmitFailure()
			return TrackedJob{}, err
		}
		jobID, err = uc.api.SubmitFile(ctx, sub.File.Name, sub.File.Data)
	} else {
		jobID, err = uc.api.SubmitURL(ctx, sub.URL)
	}
	if err != nil {
		metrics.IncSubmitFailure()
		log.Warn().Err(err).Str("source", string(sub.Source())).Msg("submission failed")
		return TrackedJob{}, uc.submitError(err)
	}

	job := model.NewJob(jobID, sub.Filename(), sub.Source(), uc.now())
	snap, err := uc.track(job)
	if err != nil {
		metrics.IncSubmitFailure()
		log.Warn().Err(err).Str("job_id", job.ID).Msg("job not tracked")
		return TrackedJob{}, &domain.SubmitError{Message: uc.msgs.T("err_submit"), Cause: err}
	}
	metrics.IncJobSubmitted(string(job.Source))
	log.Info().Str("job_id", job.ID).Str("filename", job.Filename).Str("source", string(job.Source)).Msg("job submitted")
	return snap, nil
}

func (uc *TrackerUseCase) checkUpload(f *model.Upload, log *zerolog.Logger) error {
	if uc.cfg.MaxUploadBytes > 0 && int64(len(f.Data)) > uc.cfg.MaxUploadBytes {
		return &domain.SubmitError{
			Message: uc.msgs.T("err_too_large", uc.cfg.MaxUploadBytes>>20),
			Cause:   fmt.Errorf("%w: %d bytes", domain.ErrInvalidArgument, len(f.Data)),
		}
	}
	if uc.pdf == nil {
		return nil
	}
	pages, err := uc.pdf.Inspect(f.Data)
	if err != nil {
		return &domain.SubmitError{Message: uc.msgs.T("err_not_pdf"), Cause: err}
	}
	log.Debug().Str("filename", f.Name).Int("pages", pages).Msg("upload validated")
	return nil
}

// submitError keeps the service's own message when it sent one.
func (uc *TrackerUseCase) submitError(err error) error {
	out := &domain.SubmitError{Message: uc.msgs.T("err_submit"), Cause: err}
	var se *domain.SubmitError
	if errors.As(err, &se) {
		out.Status = se.Status
		if se.Message != "" {
			out.Message = se.Message
		}
	}
	return out
}

func (uc *TrackerUseCase) track(job *model.Job) (TrackedJob, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.closed {
		return TrackedJob{}, domain.ErrTrackerClosed
	}
	if _, ok := uc.jobs[job.ID]; ok {
		return TrackedJob{}, fmt.Errorf("%w: %s", domain.ErrAlreadyTracked, job.ID)
	}

	id := job.ID
	jobLog := uc.log.With().Str("job_id", id).Logger()
	e := &trackedEntry{job: *job, done: make(chan struct{})}
	e.poller = sched.NewPoller(uc.cfg.Poll,
		func(ctx context.Context) bool { return uc.pollOnce(ctx, id) },
		func() { uc.finish(id, model.ErrorKindTimeout, uc.msgs.T("err_timeout"), nil) },
		&jobLog,
	)
	uc.jobs[id] = e
	uc.order = append(uc.order, id)
	e.poller.Start(uc.ctx)
	return TrackedJob{Job: e.job, Expanded: e.expanded}, nil
}

// pollOnce performs one status check. It returns true once the job is terminal.
func (uc *TrackerUseCase) pollOnce(ctx context.Context, id string) bool {
	ctx = logging.WithJobID(ctx, id)
	st, err := uc.api.Status(ctx, id)
	if uc.ctx.Err() != nil {
		// shutting down; leave the job as it is
		return true
	}
	if err != nil {
		metrics.IncPoll("failure")
		logging.With(ctx, uc.log).Warn().Err(err).Msg("status poll failed")
		return uc.finish(id, model.ErrorKindTransport, uc.msgs.T("err_poll"), nil)
	}

	switch model.JobStatus(st.Status) {
	case model.JobStatusDone:
		res, err := model.ParseResult(st.Result)
		if err != nil {
			metrics.IncPoll("failure")
			logging.With(ctx, uc.log).Warn().Err(err).Msg("status result unreadable")
			return uc.finish(id, model.ErrorKindTransport, uc.msgs.T("err_poll"), nil)
		}
		metrics.IncPoll("done")
		return uc.finish(id, "", "", &res)
	case model.JobStatusError:
		metrics.IncPoll("error")
		msg := st.Detail
		if msg == "" {
			msg = uc.msgs.T("err_processing")
		}
		return uc.finish(id, model.ErrorKindBackend, msg, nil)
	default:
		metrics.IncPoll("processing")
		uc.mu.Lock()
		if e, ok := uc.jobs[id]; ok {
			e.job.Polls++
		}
		uc.mu.Unlock()
		return false
	}
}

// finish moves a job to its terminal status: done when res is set, error otherwise.
// It reports true whenever the job is terminal afterwards, so the poller stops.
func (uc *TrackerUseCase) finish(id string, kind model.ErrorKind, msg string, res *model.Result) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	e, ok := uc.jobs[id]
	if !ok || e.job.Status.Terminal() {
		return true
	}
	if kind != model.ErrorKindTimeout {
		e.job.Polls++
	}
	now := uc.now()
	var changed bool
	if res != nil {
		changed = e.job.Complete(*res, now)
	} else {
		changed = e.job.Fail(kind, msg, now)
	}
	if !changed {
		return true
	}
	close(e.done)
	metrics.IncJobFinished(string(e.job.Status), string(e.job.ErrorKind))

	var ev *zerolog.Event
	if e.job.Status == model.JobStatusError {
		ev = uc.log.Warn().Str("error_kind", string(e.job.ErrorKind)).Str("error", e.job.Error)
	} else {
		ev = uc.log.Info()
	}
	ev.Str("job_id", id).
		Str("status", string(e.job.Status)).
		Int("pages", e.job.Pages).
		Int("polls", e.job.Polls).
		Dur("elapsed", now.Sub(e.job.SubmittedAt)).
		Msg("job finished")
	return true
}

// List returns all jobs in submission order.
func (uc *TrackerUseCase) List() []TrackedJob {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	out := make([]TrackedJob, 0, len(uc.order))
	for _, id := range uc.order {
		e := uc.jobs[id]
		out = append(out, TrackedJob{Job: e.job, Expanded: e.expanded})
	}
	return out
}

// Get returns one job by id.
func (uc *TrackerUseCase) Get(id string) (TrackedJob, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	e, ok := uc.jobs[id]
	if !ok {
		return TrackedJob{}, domain.ErrNotFound
	}
	return TrackedJob{Job: e.job, Expanded: e.expanded}, nil
}

// Wait blocks until the job is terminal or ctx is done.
func (uc *TrackerUseCase) Wait(ctx context.Context, id string) (TrackedJob, error) {
	uc.mu.Lock()
	e, ok := uc.jobs[id]
	uc.mu.Unlock()
	if !ok {
		return TrackedJob{}, domain.ErrNotFound
	}
	select {
	case <-e.done:
		return uc.Get(id)
	case <-ctx.Done():
		return TrackedJob{}, ctx.Err()
	}
}

// Toggle flips the expand flag of one job and returns the new value.
func (uc *TrackerUseCase) Toggle(id string) (bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	e, ok := uc.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	e.expanded = !e.expanded
	return e.expanded, nil
}

// SetExpanded sets the expand flag of one job.
func (uc *TrackerUseCase) SetExpanded(id string, expanded bool) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	e, ok := uc.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.expanded = expanded
	return nil
}

// Download renders the transcript of a done job.
func (uc *TrackerUseCase) Download(id string) (Transcript, error) {
	tj, err := uc.Get(id)
	if err != nil {
		return Transcript{}, err
	}
	if tj.Status != model.JobStatusDone {
		return Transcript{}, domain.ErrJobNotDone
	}
	return NewTranscript(tj.Job, uc.now()), nil
}

// Close stops every poller. Jobs still processing stay in that state.
func (uc *TrackerUseCase) Close() {
	uc.mu.Lock()
	if uc.closed {
		uc.mu.Unlock()
		return
	}
	uc.closed = true
	uc.cancel()
	pollers := make([]*sched.Poller, 0, len(uc.jobs))
	for _, e := range uc.jobs {
		pollers = append(pollers, e.poller)
	}
	uc.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
	uc.log.Info().Int("jobs", len(pollers)).Msg("tracker closed")
}
