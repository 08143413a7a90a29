package cron

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type schedule struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry holds jobs with their cadence. A job registered with a zero
// cadence runs on every service tick.
type Registry struct {
	mu        sync.Mutex
	schedules []*schedule
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register schedules job to run at most once per every.
func (r *Registry) Register(job Job, every time.Duration) {
	if job == nil {
		return
	}
	if every < 0 {
		every = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules = append(r.schedules, &schedule{job: job, every: every})
}

// Due returns the jobs whose cadence has elapsed at now, in registration
// order, and stamps them as run. A job that fails still waits a full
// cadence before it is retried.
func (r *Registry) Due(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Job
	for _, s := range r.schedules {
		if !s.lastRun.IsZero() && now.Sub(s.lastRun) < s.every {
			continue
		}
		s.lastRun = now
		due = append(due, s.job)
	}
	return due
}

// Names lists registered job names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.schedules))
	for _, s := range r.schedules {
		names = append(names, s.job.Name())
	}
	return names
}
