package job

import (
	"context"
	"slices"
	"sync"
)

// DefaultHistory is the number of jobs kept when no limit is given.
const DefaultHistory = 200

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It keeps at most limit jobs; when full, the oldest terminal job is evicted.
// Jobs still in flight are never evicted.
type MemoryRepository struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // insertion order, oldest first
	limit int
}

// NewMemoryRepository creates a new in-memory job repository.
// A non-positive limit uses DefaultHistory.
func NewMemoryRepository(limit int) *MemoryRepository {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &MemoryRepository{
		jobs:  make(map[string]*Job),
		limit: limit,
	}
}

// Save stores a clone of job, replacing any previous version.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		r.order = append(r.order, job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	r.evict()
	return nil
}

// evict drops the oldest terminal jobs until the repository fits its limit.
func (r *MemoryRepository) evict() {
	for i := 0; len(r.order) > r.limit && i < len(r.order); {
		jobID := r.order[i]
		if r.jobs[jobID].IsTerminal() {
			delete(r.jobs, jobID)
			r.order = slices.Delete(r.order, i, i+1)
			continue
		}
		i++
	}
}

// FindByID retrieves a job by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// List returns all jobs, newest first.
// Returns clones to prevent external mutations.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Job, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		result = append(result, r.jobs[r.order[i]].Clone())
	}
	return result, nil
}
