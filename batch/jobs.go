package batch

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var ErrQueueFull = errors.New("scan queue is full")

// Job is a queued directory scan.
type Job struct {
	ID        string
	Root      string
	Status    Status
	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
	Entries   []FileEntry
	Failures  []string
	Error     string

	seq int
}

// Errored returns the entries whose tree contains syntax errors.
func (j *Job) Errored() []FileEntry {
	return Report{Entries: j.Entries}.Errored()
}

func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

func (j *Job) snapshot() Job {
	out := *j
	out.Entries = slices.Clone(j.Entries)
	out.Failures = slices.Clone(j.Failures)
	return out
}

// Jobs runs scans submitted from elsewhere, one at a time, on the goroutine
// that calls Run.
type Jobs struct {
	scanner  *Scanner
	mu       sync.RWMutex
	jobs     map[string]*Job
	requests chan string
	nextSeq  int
}

func NewJobs(scanner *Scanner) *Jobs {
	return &Jobs{
		scanner:  scanner,
		jobs:     make(map[string]*Job),
		requests: make(chan string, 100),
	}
}

// Submit queues a scan of root and returns its id.
func (j *Jobs) Submit(root string) (string, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Root:      root,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	select {
	case j.requests <- job.ID:
	default:
		return "", ErrQueueFull
	}
	j.nextSeq++
	job.seq = j.nextSeq
	j.jobs[job.ID] = job
	return job.ID, nil
}

// Get returns a copy of the job with the given id.
func (j *Jobs) Get(id string) (Job, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// List returns copies of all jobs, oldest first.
func (j *Jobs) List() []Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Job, 0, len(j.jobs))
	for _, job := range j.jobs {
		out = append(out, job.snapshot())
	}
	slices.SortFunc(out, func(a, b Job) int {
		return a.seq - b.seq
	})
	return out
}

// Run processes queued scans until ctx is done.
func (j *Jobs) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case id := <-j.requests:
			j.process(ctx, id)
		}
	}
}

func (j *Jobs) process(ctx context.Context, id string) {
	j.mu.Lock()
	job, ok := j.jobs[id]
	if !ok {
		j.mu.Unlock()
		return
	}
	job.Status = StatusInProgress
	job.StartedAt = time.Now()
	root := job.Root
	j.mu.Unlock()

	log.Infof("scan %s: %s", id, root)
	var failure error
	for entry, err := range j.scanner.Scan(ctx, root) {
		j.mu.Lock()
		var fileErr *FileError
		switch {
		case err == nil:
			job.Entries = append(job.Entries, entry)
		case errors.As(err, &fileErr):
			job.Failures = append(job.Failures, fileErr.Error())
		default:
			failure = err
		}
		j.mu.Unlock()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	job.EndedAt = time.Now()
	if failure != nil {
		job.Status = StatusFailed
		job.Error = failure.Error()
		log.Warningf("scan %s failed: %v", id, failure)
		return
	}
	job.Status = StatusCompleted
	log.Infof("scan %s: %d files, %d with errors", id, len(job.Entries), len(job.Errored()))
}
