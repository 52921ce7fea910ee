package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/smartpick/models"
	"github.com/use-agent/smartpick/pipeline"
	"github.com/use-agent/smartpick/webhook"
)

const (
	// jobTimeout bounds one background search.
	jobTimeout = 15 * time.Minute

	// maxActiveJobs is the load above which health reports "degraded".
	maxActiveJobs = 8
)

// JobStore holds in-flight and finished background searches. Finished jobs
// older than ttl are evicted on the next insert.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.SearchJob
	ttl  time.Duration
}

// NewJobStore creates an empty store.
func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{jobs: make(map[string]*models.SearchJob), ttl: ttl}
}

func (s *JobStore) put(job *models.SearchJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl).Unix()
	for id, j := range s.jobs {
		if j.Status != models.JobProcessing && j.CreatedAt < cutoff {
			delete(s.jobs, id)
		}
	}
	s.jobs[job.ID] = job
}

// get returns a copy so callers never race with finish.
func (s *JobStore) get(id string) (models.SearchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.SearchJob{}, false
	}
	return *j, true
}

func (s *JobStore) finish(id string, res *models.SearchResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	if err != nil {
		j.Status = models.JobFailed
		j.Error = toDetail(err)
		return
	}
	j.Status = models.JobCompleted
	j.Result = res
}

// Active counts the searches still running.
func (s *JobStore) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, j := range s.jobs {
		if j.Status == models.JobProcessing {
			n++
		}
	}
	return n
}

// PostSearchAsync returns a handler for POST /api/v1/search/async.
// The request is validated up front; the run itself happens in the
// background and its result is polled through GetSearch.
func PostSearchAsync(pl *pipeline.Pipeline, jobs *JobStore, hook *webhook.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err)
			return
		}
		if err := pl.Prepare(&req); err != nil {
			respondError(c, err)
			return
		}

		job := &models.SearchJob{
			ID:        uuid.NewString(),
			Status:    models.JobProcessing,
			Request:   req,
			CreatedAt: time.Now().Unix(),
		}
		jobs.put(job)

		go runJob(pl, jobs, hook, job.ID, req)

		c.JSON(http.StatusAccepted, models.JobResponse{
			ID:     job.ID,
			Status: models.JobProcessing,
		})
	}
}

// GetSearch returns a handler for GET /api/v1/search/:id.
func GetSearch(jobs *JobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := jobs.get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.JobStatusResponse{
				ID:     c.Param("id"),
				Status: "not_found",
			})
			return
		}

		c.JSON(http.StatusOK, models.JobStatusResponse{
			ID:     job.ID,
			Status: job.Status,
			Result: job.Result,
			Error:  job.Error,
		})
	}
}

func runJob(pl *pipeline.Pipeline, jobs *JobStore, hook *webhook.Sender, id string, req models.SearchRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := pl.Run(ctx, req)
	jobs.finish(id, res, err)
	if err != nil {
		slog.Error("background search failed", "job", id, "error", err)
		return
	}

	slog.Info("background search completed",
		"job", id,
		"run", res.ID,
		"devices", len(res.Devices),
		"failures", len(res.Failures),
	)
	notify(hook, res)
}
