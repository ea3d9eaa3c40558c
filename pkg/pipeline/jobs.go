package pipeline

import "time"

// JobStatus represents the lifecycle of one file in a batch.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks a single GenBank file / locus tag pair.
type Job struct {
	ID        int
	File      string
	Tag       string
	Output    string
	Records   int
	Status    JobStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobLedger keeps the state of every job in a batch, in submission order.
type JobLedger struct {
	jobs []*Job
}

func NewJobLedger() *JobLedger {
	return &JobLedger{}
}

// Add registers a queued job and returns its id.
func (l *JobLedger) Add(file, tag string) int {
	now := time.Now()
	job := &Job{
		ID:        len(l.jobs),
		File:      file,
		Tag:       tag,
		Status:    JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.jobs = append(l.jobs, job)
	return job.ID
}

func (l *JobLedger) SetRunning(id int) {
	l.update(id, func(job *Job) {
		job.Status = JobRunning
	})
}

// Complete records where the output went and how many rows it holds.
func (l *JobLedger) Complete(id int, output string, records int) {
	l.update(id, func(job *Job) {
		job.Status = JobCompleted
		job.Output = output
		job.Records = records
	})
}

func (l *JobLedger) Fail(id int, err error) {
	l.update(id, func(job *Job) {
		job.Status = JobFailed
		job.Error = err.Error()
	})
}

// Get returns a copy of the job.
func (l *JobLedger) Get(id int) (Job, bool) {
	if id < 0 || id >= len(l.jobs) {
		return Job{}, false
	}
	return *l.jobs[id], true
}

// Counts tallies jobs by status.
func (l *JobLedger) Counts() map[JobStatus]int {
	counts := make(map[JobStatus]int)
	for _, j := range l.jobs {
		counts[j.Status]++
	}
	return counts
}

func (l *JobLedger) update(id int, update func(job *Job)) {
	if id < 0 || id >= len(l.jobs) {
		return
	}
	job := l.jobs[id]
	update(job)
	job.UpdatedAt = time.Now()
}
