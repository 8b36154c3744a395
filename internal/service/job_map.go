package service

import (
	"sync"

	"github.com/google/uuid"
)

func NewJobMap[K comparable]() *JobMap[K] {
	return &JobMap[K]{
		jobs: make(map[K]uuid.UUID),
	}
}

// JobMap tracks the scheduler job owned by each key, so tearing down the
// owner can remove its job and no orphaned timers outlive it.
type JobMap[K comparable] struct {
	m    sync.Mutex
	jobs map[K]uuid.UUID
}

func (m *JobMap[K]) Add(key K, jobID uuid.UUID) {
	m.m.Lock()
	defer m.m.Unlock()
	m.jobs[key] = jobID
}

func (m *JobMap[K]) Has(key K) bool {
	m.m.Lock()
	defer m.m.Unlock()
	_, ok := m.jobs[key]
	return ok
}

// Remove deletes and returns the job for key. The second return value is
// false when the key holds no job, which callers treat as a benign race.
func (m *JobMap[K]) Remove(key K) (uuid.UUID, bool) {
	m.m.Lock()
	defer m.m.Unlock()
	jobID, ok := m.jobs[key]
	delete(m.jobs, key)
	return jobID, ok
}

func (m *JobMap[K]) Len() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.jobs)
}
