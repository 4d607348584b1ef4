package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/textrec/text-recognition-service/internal/resultcache"
)

// JobState models the lifecycle of an asynchronous recognition job.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCanceled  JobState = "canceled"
)

// Job is one queued recognition of a remote file.
type Job struct {
	ID       string     `json:"id"`
	Url      string     `json:"url"`
	State    JobState   `json:"state"`
	Error    string     `json:"error,omitempty"`
	Created  time.Time  `json:"created"`
	Finished *time.Time `json:"finished,omitempty"`

	result *RecognitionResponse
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager queues recognitions of remote files and lets clients poll for
// the outcome instead of holding a connection open.
type JobManager struct {
	svc   *Service
	mu    sync.Mutex
	jobs  map[string]*Job
	queue chan *Job
}

const jobRetention = time.Hour

func newJobManager(svc *Service, workers int) *JobManager {
	jm := &JobManager{
		svc:   svc,
		jobs:  make(map[string]*Job),
		queue: make(chan *Job, 100),
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go jm.work()
	}
	go jm.expire()
	return jm
}

// Submit queues url for recognition. The returned job is already registered
// for polling.
func (jm *JobManager) Submit(url string) (*Job, error) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:      uuid.NewString(),
		Url:     url,
		State:   JobStatePending,
		Created: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}
	jm.mu.Lock()
	jm.jobs[job.ID] = job
	jm.mu.Unlock()
	select {
	case jm.queue <- job:
		return job, nil
	default:
		jm.finish(job, JobStateFailed, nil, "job queue full")
		return nil, fmt.Errorf("job queue full")
	}
}

func (jm *JobManager) work() {
	for job := range jm.queue {
		jm.run(job)
	}
}

func (jm *JobManager) run(job *Job) {
	if job.ctx.Err() != nil {
		jm.finish(job, JobStateCanceled, nil, "")
		return
	}
	jm.setState(job, JobStateRunning)
	res, metadata, err := jm.svc.recognizeUrl(job.ctx, job.Url, false)
	switch {
	case job.ctx.Err() != nil:
		jm.finish(job, JobStateCanceled, nil, "")
	case err != nil:
		jm.svc.log.Error("Job failed", "id", job.ID, "url", job.Url, "err", err)
		jm.finish(job, JobStateFailed, nil, err.Error())
	default:
		jm.finish(job, JobStateSucceeded, res, "")
		jm.svc.enqueueSave(job.Url, res, metadata)
	}
}

func (jm *JobManager) setState(job *Job, state JobState) {
	jm.mu.Lock()
	job.State = state
	jm.mu.Unlock()
}

func (jm *JobManager) finish(job *Job, state JobState, res *RecognitionResponse, errMsg string) {
	now := time.Now()
	jm.mu.Lock()
	job.State = state
	job.Error = errMsg
	job.Finished = &now
	job.result = res
	jm.mu.Unlock()
}

// expire drops finished jobs after the retention period so the job map does
// not grow without bound.
func (jm *JobManager) expire() {
	for range time.Tick(10 * time.Minute) {
		cutoff := time.Now().Add(-jobRetention)
		jm.mu.Lock()
		for id, job := range jm.jobs {
			if job.Finished != nil && job.Finished.Before(cutoff) {
				delete(jm.jobs, id)
			}
		}
		jm.mu.Unlock()
	}
}

// snapshot returns a copy safe to serialize while workers keep mutating the
// original.
func (jm *JobManager) snapshot(id string) (Job, *RecognitionResponse, bool) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	job, ok := jm.jobs[id]
	if !ok {
		return Job{}, nil, false
	}
	return Job{
		ID:       job.ID,
		Url:      job.Url,
		State:    job.State,
		Error:    job.Error,
		Created:  job.Created,
		Finished: job.Finished,
	}, job.result, true
}

// recognizeUrl is the transport-independent variant of FromUrl, shared by
// jobs and the NATS endpoints.
func (s *Service) recognizeUrl(ctx context.Context, url string, noCache bool) (*RecognitionResponse, resultcache.ResultMetadata, error) {
	noCache = noCache || s.cacheNop
	response, metadata, err := s.fetch(ctx, url, noCache)
	if err != nil {
		return nil, nil, err
	}
	defer response.Body.Close()
	if response.StatusCode == http.StatusNotModified {
		if cached, ok := s.cachedResponse(url); ok {
			return cached, metadata, nil
		}
	}
	if response.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("fetching %s: unexpected status %s", url, response.Status)
	}
	in, err := s.source.FromStream(response.Body, response.ContentLength, url)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.recognizeInput(ctx, in, RequestParams{Url: url})
	if err != nil {
		return nil, nil, err
	}
	return res, resultMetadata(res, response), nil
}

// SubmitJob accepts a recognition job for a remote file and returns its id.
func (s *Service) SubmitJob(c *gin.Context) {
	url := c.Query("url")
	if !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
		c.String(http.StatusBadRequest, fmt.Sprintf("not a valid HTTP(S) URL: %s", url))
		return
	}
	job, err := s.jobs.Submit(url)
	if err != nil {
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}
	s.log.Info("Job accepted", "id", job.ID, "url", url)
	snap, _, _ := s.jobs.snapshot(job.ID)
	s.writeJSON(c, http.StatusAccepted, snap)
}

// JobStatus reports the state of one job.
func (s *Service) JobStatus(c *gin.Context) {
	snap, _, ok := s.jobs.snapshot(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "no such job")
		return
	}
	s.writeJSON(c, http.StatusOK, snap)
}

// JobResult returns the recognition result of a finished job.
func (s *Service) JobResult(c *gin.Context) {
	snap, res, ok := s.jobs.snapshot(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "no such job")
		return
	}
	switch snap.State {
	case JobStateSucceeded:
		s.writeResponse(c, res, RequestParams{}, nil)
	case JobStateFailed:
		c.String(http.StatusUnprocessableEntity, snap.Error)
	case JobStateCanceled:
		c.String(http.StatusGone, "job canceled")
	default:
		c.String(http.StatusConflict, "job not finished")
	}
}

// CancelJob cancels a pending or running job.
func (s *Service) CancelJob(c *gin.Context) {
	id := c.Param("id")
	jm := s.jobs
	jm.mu.Lock()
	job, ok := jm.jobs[id]
	if ok {
		job.cancel()
	}
	jm.mu.Unlock()
	if !ok {
		c.String(http.StatusNotFound, "no such job")
		return
	}
	s.log.Info("Job canceled", "id", id)
	c.Status(http.StatusNoContent)
}

func (s *Service) writeJSON(c *gin.Context, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}
