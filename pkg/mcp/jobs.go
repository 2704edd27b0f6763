package mcp

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freellmstxt/llmstxt/pkg/models"
)

// JobStatus represents the current state of a crawl job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job can no longer change state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobProgress is the last progress event seen for a job
type JobProgress struct {
	Stage     string `json:"stage,omitempty"`
	Message   string `json:"message,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// JobOutput is what a completed job produced
type JobOutput struct {
	LLMSTxt     string            `json:"llms_txt"`
	LLMSFullTxt string            `json:"llms_full_txt,omitempty"`
	Mode        string            `json:"discovery_mode"`
	Stats       models.CrawlStats `json:"stats"`
	TokenCount  int               `json:"token_count"`
}

// Job represents a background crawl job. Values returned by JobManager are snapshots.
type Job struct {
	ID           string      `json:"id"`
	URL          string      `json:"url"`
	Status       JobStatus   `json:"status"`
	StartedAt    time.Time   `json:"started_at"`
	CompletedAt  time.Time   `json:"completed_at,omitempty"`
	Progress     JobProgress `json:"progress"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Output       *JobOutput  `json:"-"`

	key    string
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager manages background crawl jobs
type JobManager struct {
	jobs  map[string]*Job
	mu    sync.RWMutex
	bykey map[string]string // crawl key -> jobID for active jobs
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:  make(map[string]*Job),
		bykey: make(map[string]string),
	}
}

// CreateJob creates a pending job for a crawl target. key identifies the crawl; while a job
// with the same key is active it is returned instead and created is false.
func (m *JobManager) CreateJob(key, rawURL string) (job Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingID, exists := m.bykey[key]; exists {
		if existing := m.jobs[existingID]; existing != nil && !existing.Status.IsTerminal() {
			return *existing, false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		key:       key,
		ctx:       ctx,
		cancel:    cancel,
	}
	m.jobs[j.ID] = j
	m.bykey[key] = j.ID
	return *j, true
}

// GetJob returns a snapshot of a job
func (m *JobManager) GetJob(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if j, ok := m.jobs[jobID]; ok {
		return *j, true
	}
	return Job{}, false
}

// UpdateStatus moves a job to status. Terminal jobs are left unchanged.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status.IsTerminal() {
		return
	}
	job.Status = status
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
	if status.IsTerminal() {
		m.finishLocked(job)
	}
}

// UpdateProgress records the latest progress event of a job
func (m *JobManager) UpdateProgress(jobID string, ev models.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.Progress = JobProgress{
			Stage:     string(ev.Stage),
			Message:   ev.Message,
			Completed: ev.Completed,
			Total:     ev.Total,
		}
	}
}

// Complete stores the output of a job and marks it completed
func (m *JobManager) Complete(jobID string, out JobOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.Status.IsTerminal() {
		return
	}
	job.Output = &out
	job.Status = JobStatusCompleted
	m.finishLocked(job)
}

// CancelJob cancels an active job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists && !job.Status.IsTerminal() {
		job.cancel()
		job.Status = JobStatusCancelled
		m.finishLocked(job)
		return true
	}
	return false
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if !job.Status.IsTerminal() {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
		}
	}
	m.bykey = make(map[string]string)
}

// ListJobs returns snapshots of all jobs, oldest first
func (m *JobManager) ListJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	slices.SortFunc(jobs, func(a, b Job) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return jobs
}

// Context returns the context a job's crawl runs under
func (m *JobManager) Context(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}

// finishLocked stamps a terminal job and releases its key. m.mu must be held.
func (m *JobManager) finishLocked(job *Job) {
	job.CompletedAt = time.Now()
	if m.bykey[job.key] == job.ID {
		delete(m.bykey, job.key)
	}
	job.cancel()
}
