package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"envmon/internal/blob"
	"envmon/internal/core"
	"envmon/internal/docgen"
	"envmon/internal/logx"
	"envmon/pkg/domain"
)

// Status describes the lifecycle stage of a report job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions happen.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Job tracks one report request.
type Job struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	ProjectID   string                     `json:"projectId,omitempty"`
	ReportType  domain.ReportType          `json:"reportType"`
	Format      Format                     `json:"format"`
	Fields      []Field                    `json:"fields,omitempty"`
	Status      Status                     `json:"status"`
	Progress    int                        `json:"progress"`
	Stage       string                     `json:"stage"`
	Error       string                     `json:"error,omitempty"`
	Entry       *domain.ReportHistoryEntry `json:"entry,omitempty"`
	CreatedAt   time.Time                  `json:"createdAt"`
	UpdatedAt   time.Time                  `json:"updatedAt"`
	CompletedAt *time.Time                 `json:"completedAt,omitempty"`
}

func (j *Job) copy() Job {
	out := *j
	out.Fields = append([]Field(nil), j.Fields...)
	if j.Entry != nil {
		e := *j.Entry
		out.Entry = &e
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// ErrStopped is returned when a job is submitted after Stop.
var ErrStopped = errors.New("report worker stopped")

// Worker executes report jobs asynchronously, one at a time.
type Worker struct {
	svc     *core.Service
	docs    *docgen.Generator
	blobs   blob.Store
	logger  core.Logger
	metrics core.MetricsRecorder
	scale   float64
	notify  func(Job)

	queue  chan string
	mu     sync.RWMutex
	jobs   map[string]*Job
	stops  map[string]context.CancelFunc
	done    map[string]chan struct{}
	lastMS  int64
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger.
func WithLogger(l core.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMetrics records one observation per finished job.
func WithMetrics(m core.MetricsRecorder) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithStageScale multiplies every stage delay. Zero skips the delays.
func WithStageScale(scale float64) Option {
	return func(w *Worker) {
		if scale >= 0 {
			w.scale = scale
		}
	}
}

// WithProgress registers fn to receive a snapshot on every transition. fn
// runs on the worker goroutine and must not block.
func WithProgress(fn func(Job)) Option {
	return func(w *Worker) { w.notify = fn }
}

// WithQueueSize bounds the number of jobs waiting to run.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan string, n)
		}
	}
}

// NewWorker constructs a worker. docs may be nil when word output is not
// needed; blobs may be nil, in which case artifacts are not kept.
func NewWorker(svc *core.Service, docs *docgen.Generator, blobs blob.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		svc:    svc,
		docs:   docs,
		blobs:  blobs,
		logger: logx.Nop(),
		scale:  1,
		queue:  make(chan string, 32),
		jobs:   make(map[string]*Job),
		stops:  make(map[string]context.CancelFunc),
		done:   make(map[string]chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running job to observe it.
// Jobs still queued finish as cancelled.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	w.drain()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue schedules a standard report on one project.
func (w *Worker) Enqueue(ctx context.Context, req QuickRequest) (Job, error) {
	if strings.TrimSpace(req.ProjectID) == "" || req.ReportType == "" {
		return Job{}, invalid("", domain.MsgRequired)
	}
	if !req.ReportType.Known() || req.ReportType == domain.ReportCustom {
		return Job{}, invalid("reportType", domain.MsgInvalidValue)
	}
	format, ok := ParseFormat(req.OutputFormat)
	if !ok {
		return Job{}, invalid("outputFormat", domain.MsgInvalidValue)
	}
	project, err := w.svc.GetProject(ctx, strings.TrimSpace(req.ProjectID))
	if err != nil {
		return Job{}, err
	}
	return w.submit(Job{
		Name:       project.ProjectName + req.ReportType.Label(),
		ProjectID:  project.ID,
		ReportType: req.ReportType,
		Format:     format,
	})
}

// EnqueueCustom schedules a custom report. Word output is not offered for
// custom reports.
func (w *Worker) EnqueueCustom(ctx context.Context, req CustomRequest) (Job, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Job{}, invalid("name", MsgNameRequired)
	}
	fields, err := customFields(req.Fields)
	if err != nil {
		return Job{}, err
	}
	format, ok := ParseFormat(req.OutputFormat)
	if !ok || format == FormatWord {
		return Job{}, invalid("outputFormat", domain.MsgInvalidValue)
	}
	projectID := strings.TrimSpace(req.ProjectID)
	if projectID != "" {
		if _, err := w.svc.GetProject(ctx, projectID); err != nil {
			return Job{}, err
		}
	}
	return w.submit(Job{
		Name:       name,
		ProjectID:  projectID,
		ReportType: domain.ReportCustom,
		Format:     format,
		Fields:     fields,
	})
}

// EnqueueBatch schedules one standard report per project whose monitoring
// date falls within the range. An empty report type selects the monitoring
// summary.
func (w *Worker) EnqueueBatch(ctx context.Context, req BatchRequest) ([]Job, error) {
	from, to, err := dateRange(req)
	if err != nil {
		return nil, err
	}
	if req.ReportType == "" {
		req.ReportType = domain.ReportMonitoringSummary
	}
	projects, err := w.svc.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	var jobs []Job
	for _, p := range projects {
		d, err := time.Parse(domain.DateLayout, p.MonitoringDate)
		if err != nil || d.Before(from) || d.After(to) {
			continue
		}
		job, err := w.Enqueue(ctx, QuickRequest{ProjectID: p.ID, ReportType: req.ReportType, OutputFormat: req.OutputFormat})
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}
	w.logger.Info("batch reports queued", "from", req.StartDate, "to", req.EndDate, "jobs", len(jobs))
	return jobs, nil
}

// nextID returns report_<unixms>, never repeating an earlier id. w.mu must be held.
func (w *Worker) nextID(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= w.lastMS {
		ms = w.lastMS + 1
	}
	w.lastMS = ms
	return fmt.Sprintf("report_%d", ms)
}

func (w *Worker) submit(job Job) (Job, error) {
	now := w.svc.Now()
	job.Status = StatusQueued
	job.CreatedAt = now
	job.UpdatedAt = now

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return Job{}, ErrStopped
	}
	job.ID = w.nextID(now)
	w.jobs[job.ID] = &job
	w.done[job.ID] = make(chan struct{})
	snapshot := job.copy()
	w.mu.Unlock()

	select {
	case w.queue <- job.ID:
	default:
		w.finish(job.ID, StatusFailed, "report queue full", nil)
		return Job{}, fmt.Errorf("report queue full")
	}
	w.logger.Debug("report queued", "id", job.ID, "project", job.ProjectID, "type", string(job.ReportType))
	return snapshot, nil
}

// Get returns a snapshot of the job.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.copy(), true
}

// Wait blocks until the job reaches a terminal status or ctx ends.
func (w *Worker) Wait(ctx context.Context, id string) (Job, error) {
	w.mu.RLock()
	done, ok := w.done[id]
	w.mu.RUnlock()
	if !ok {
		return Job{}, domain.ErrNotFound{Entity: domain.EntityReport, ID: id}
	}
	select {
	case <-done:
		job, _ := w.Get(id)
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Cancel stops a queued or running job. Cancellation is observed between
// stages; nothing is stored for a cancelled job.
func (w *Worker) Cancel(id string) bool {
	w.mu.Lock()
	job, ok := w.jobs[id]
	if !ok || job.Status.Terminal() {
		w.mu.Unlock()
		return false
	}
	if job.Status == StatusQueued {
		snapshot := w.finishLocked(job, StatusCancelled, NoticeCancelled, nil)
		w.mu.Unlock()
		w.publish(snapshot)
		return true
	}
	stop := w.stops[id]
	w.mu.Unlock()
	if stop != nil {
		stop()
	}
	return true
}

func (w *Worker) process(id string) {
	w.mu.Lock()
	job, ok := w.jobs[id]
	if !ok || job.Status != StatusQueued {
		w.mu.Unlock()
		return
	}
	ctx, stop := context.WithCancel(w.ctx)
	defer stop()
	w.stops[id] = stop
	job.Status = StatusRunning
	snapshot := job.copy()
	w.mu.Unlock()

	started := time.Now()
	err := w.run(ctx, snapshot)
	if w.metrics != nil {
		w.metrics.Observe(ctx, "report_"+string(snapshot.ReportType), err == nil, time.Since(started))
	}
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		w.logger.Info("report cancelled", "id", id)
		w.finish(id, StatusCancelled, NoticeCancelled, nil)
	default:
		w.logger.Warn("report failed", "id", id, "error", err)
		w.finish(id, StatusFailed, err.Error(), nil)
	}
}

func (w *Worker) run(ctx context.Context, job Job) error {
	var artifact []byte
	for _, stage := range Stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.advance(job.ID, stage)
		if stage.Progress == renderStage {
			var err error
			if artifact, err = w.render(ctx, job); err != nil {
				return err
			}
		}
		if err := w.pause(ctx, stage.Delay); err != nil {
			return err
		}
	}
	entry, err := w.store(ctx, job, artifact)
	if err != nil {
		return err
	}
	w.finish(job.ID, StatusSucceeded, "", &entry)
	w.logger.Info("report generated", "id", job.ID, "name", job.Name, "size", entry.FileSize)
	return nil
}

func (w *Worker) pause(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * w.scale)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *Worker) render(ctx context.Context, job Job) ([]byte, error) {
	now := w.svc.Now()
	if job.ReportType == domain.ReportCustom {
		return renderCustom(ctx, w.svc, job, now)
	}
	return renderQuick(ctx, w.svc, w.docs, job, now)
}

// store saves the artifact and prepends the history entry.
func (w *Worker) store(ctx context.Context, job Job, artifact []byte) (domain.ReportHistoryEntry, error) {
	file := formatFiles[job.Format]
	entry := domain.ReportHistoryEntry{
		ID:             job.ID,
		Name:           job.Name,
		ProjectID:      job.ProjectID,
		ReportType:     job.ReportType.Label(),
		OutputFormat:   strings.ToUpper(string(job.Format)),
		FileSize:       humanize.Bytes(uint64(len(artifact))),
		GenerationTime: w.svc.Now(),
		Status:         domain.ReportStatusDone,
	}
	if w.blobs != nil {
		key := blob.PrefixReports + job.ID + file.ext
		if _, err := blob.WriteBytes(ctx, w.blobs, key, artifact, blob.PutOptions{
			ContentType: file.contentType,
			Metadata:    map[string]string{"report": job.ID, "project": job.ProjectID, "type": string(job.ReportType)},
		}); err != nil {
			return domain.ReportHistoryEntry{}, err
		}
		entry.ArtifactKey = key
	}
	saved, _, err := w.svc.AddReportHistory(ctx, entry)
	if err != nil {
		if entry.ArtifactKey != "" {
			_, _ = w.blobs.Delete(context.WithoutCancel(ctx), entry.ArtifactKey)
		}
		return domain.ReportHistoryEntry{}, err
	}
	return saved, nil
}

func (w *Worker) advance(id string, stage Stage) {
	w.mu.Lock()
	job, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	job.Progress = stage.Progress
	job.Stage = stage.Text
	job.UpdatedAt = w.svc.Now()
	snapshot := job.copy()
	w.mu.Unlock()
	w.publish(snapshot)
}

func (w *Worker) finish(id string, status Status, message string, entry *domain.ReportHistoryEntry) {
	w.mu.Lock()
	job, ok := w.jobs[id]
	if !ok || job.Status.Terminal() {
		w.mu.Unlock()
		return
	}
	snapshot := w.finishLocked(job, status, message, entry)
	w.mu.Unlock()
	w.publish(snapshot)
}

// finishLocked moves job to a terminal status. w.mu must be held.
func (w *Worker) finishLocked(job *Job, status Status, message string, entry *domain.ReportHistoryEntry) Job {
	now := w.svc.Now()
	job.Status = status
	job.Error = message
	job.Entry = entry
	job.UpdatedAt = now
	job.CompletedAt = &now
	delete(w.stops, job.ID)
	if done, ok := w.done[job.ID]; ok {
		close(done)
	}
	return job.copy()
}

// drain cancels every job that has not started and refuses new ones.
func (w *Worker) drain() {
	w.mu.Lock()
	w.stopped = true
	var cancelled []Job
	for _, job := range w.jobs {
		if job.Status == StatusQueued {
			cancelled = append(cancelled, w.finishLocked(job, StatusCancelled, NoticeCancelled, nil))
		}
	}
	w.mu.Unlock()
	for _, job := range cancelled {
		w.publish(job)
	}
	if len(cancelled) > 0 {
		w.logger.Info("queued reports cancelled on stop", "jobs", len(cancelled))
	}
}

func (w *Worker) publish(job Job) {
	if w.notify != nil {
		w.notify(job)
	}
}
