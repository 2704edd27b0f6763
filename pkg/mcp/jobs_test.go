package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freellmstxt/llmstxt/pkg/models"
)

func createTestJob(t *testing.T, jm *JobManager, key string) Job {
	t.Helper()
	job, created := jm.CreateJob(key, "https://"+key+".test")
	require.True(t, created)
	require.NotEmpty(t, job.ID)
	return job
}

func mustGetJob(t *testing.T, jm *JobManager, id string) Job {
	t.Helper()
	job, ok := jm.GetJob(id)
	require.True(t, ok)
	return job
}

func TestNewJobManager(t *testing.T) {
	jm := NewJobManager()
	require.NotNil(t, jm)
	assert.Empty(t, jm.ListJobs())
}

func TestCreateJob(t *testing.T) {
	t.Run("new job fields correct", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "docs")

		assert.Equal(t, "https://docs.test", job.URL)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.False(t, job.StartedAt.IsZero())
		assert.True(t, job.CompletedAt.IsZero())
		assert.Nil(t, job.Output)
		assert.Empty(t, job.ErrorMessage)
	})

	t.Run("same key while active returns existing job", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "docs")
		job2, created := jm.CreateJob("docs", "https://docs.test")
		assert.False(t, created)
		assert.Equal(t, job1.ID, job2.ID)
	})

	t.Run("new job allowed after completion", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "docs")
		jm.Complete(job1.ID, JobOutput{LLMSTxt: "# Docs\n"})

		job2 := createTestJob(t, jm, "docs")
		assert.NotEqual(t, job1.ID, job2.ID)
	})

	t.Run("different keys independent", func(t *testing.T) {
		jm := NewJobManager()
		job1 := createTestJob(t, jm, "site-a")
		job2 := createTestJob(t, jm, "site-b")
		assert.NotEqual(t, job1.ID, job2.ID)
	})
}

func TestGetJob_Missing(t *testing.T) {
	jm := NewJobManager()
	_, ok := jm.GetJob("nonexistent-id")
	assert.False(t, ok)
}

func TestUpdateStatus(t *testing.T) {
	t.Run("to running", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "docs")
		jm.UpdateStatus(job.ID, JobStatusRunning, "")
		assert.Equal(t, JobStatusRunning, mustGetJob(t, jm, job.ID).Status)
	})

	t.Run("to failed sets ErrorMessage and CompletedAt", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "docs")
		jm.UpdateStatus(job.ID, JobStatusFailed, "invalid crawl target")

		got := mustGetJob(t, jm, job.ID)
		assert.Equal(t, JobStatusFailed, got.Status)
		assert.Equal(t, "invalid crawl target", got.ErrorMessage)
		assert.False(t, got.CompletedAt.IsZero())
	})

	t.Run("terminal status is final", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "docs")
		require.True(t, jm.CancelJob(job.ID))
		jm.UpdateStatus(job.ID, JobStatusFailed, "late failure")

		got := mustGetJob(t, jm, job.ID)
		assert.Equal(t, JobStatusCancelled, got.Status)
		assert.Empty(t, got.ErrorMessage)
	})

	t.Run("nonexistent is no-op", func(t *testing.T) {
		jm := NewJobManager()
		jm.UpdateStatus("fake-id", JobStatusRunning, "")
	})
}

func TestUpdateProgress(t *testing.T) {
	jm := NewJobManager()
	job := createTestJob(t, jm, "docs")
	jm.UpdateProgress(job.ID, models.ProgressEvent{Stage: models.StageFetching, Message: "fetching 3/7", Completed: 3, Total: 7})

	got := mustGetJob(t, jm, job.ID)
	assert.Equal(t, JobProgress{Stage: "fetching", Message: "fetching 3/7", Completed: 3, Total: 7}, got.Progress)

	jm.UpdateProgress("fake-id", models.ProgressEvent{})
}

func TestComplete(t *testing.T) {
	jm := NewJobManager()
	job := createTestJob(t, jm, "docs")
	ctx := jm.Context(job.ID)

	jm.Complete(job.ID, JobOutput{LLMSTxt: "# Docs\n", Mode: "robots_sitemap"})

	got := mustGetJob(t, jm, job.ID)
	assert.Equal(t, JobStatusCompleted, got.Status)
	require.NotNil(t, got.Output)
	assert.Equal(t, "# Docs\n", got.Output.LLMSTxt)
	assert.Error(t, ctx.Err())

	// A cancelled job keeps no output
	other := createTestJob(t, jm, "other")
	jm.CancelJob(other.ID)
	jm.Complete(other.ID, JobOutput{LLMSTxt: "late"})
	assert.Nil(t, mustGetJob(t, jm, other.ID).Output)
}

func TestCancelJob(t *testing.T) {
	t.Run("running job cancelled", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "docs")
		jm.UpdateStatus(job.ID, JobStatusRunning, "")

		assert.True(t, jm.CancelJob(job.ID))

		got := mustGetJob(t, jm, job.ID)
		assert.Equal(t, JobStatusCancelled, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
		assert.Error(t, jm.Context(job.ID).Err())
	})

	t.Run("completed job not cancellable", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "docs")
		jm.Complete(job.ID, JobOutput{})
		assert.False(t, jm.CancelJob(job.ID))
	})

	t.Run("nonexistent returns false", func(t *testing.T) {
		jm := NewJobManager()
		assert.False(t, jm.CancelJob("nope"))
	})
}

func TestCancelAll(t *testing.T) {
	jm := NewJobManager()
	job1 := createTestJob(t, jm, "site-a")
	job2 := createTestJob(t, jm, "site-b")
	job3 := createTestJob(t, jm, "site-c")
	jm.Complete(job3.ID, JobOutput{})

	jm.CancelAll()

	assert.Equal(t, JobStatusCancelled, mustGetJob(t, jm, job1.ID).Status)
	assert.Equal(t, JobStatusCancelled, mustGetJob(t, jm, job2.ID).Status)
	assert.Equal(t, JobStatusCompleted, mustGetJob(t, jm, job3.ID).Status)

	newJob := createTestJob(t, jm, "site-a")
	assert.NotEqual(t, job1.ID, newJob.ID)
}

func TestListJobs_OldestFirst(t *testing.T) {
	jm := NewJobManager()
	job1 := createTestJob(t, jm, "a")
	time.Sleep(2 * time.Millisecond)
	job2 := createTestJob(t, jm, "b")
	time.Sleep(2 * time.Millisecond)
	job3 := createTestJob(t, jm, "c")

	jobs := jm.ListJobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{job1.ID, job2.ID, job3.ID}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})
}

func TestContext(t *testing.T) {
	t.Run("active job has live context", func(t *testing.T) {
		jm := NewJobManager()
		job := createTestJob(t, jm, "docs")
		assert.NoError(t, jm.Context(job.ID).Err())
	})

	t.Run("nonexistent returns background context", func(t *testing.T) {
		jm := NewJobManager()
		assert.Equal(t, context.Background(), jm.Context("nope"))
	})
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
}
