package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of asynchronous work a queued job carries
type JobType string

const (
	// JobTypeManuscriptGeneration drives the manuscript generation pipeline
	JobTypeManuscriptGeneration JobType = "manuscript_generation"
)

// JobStatus is the lifecycle state of a queued job.
// Valid transitions: pending -> processing -> {completed|failed};
// processing/failed -> pending only via an explicit requeue.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is a final state
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one unit of asynchronous work in the durable queue. Jobs are never
// deleted; terminal jobs remain as an audit trail.
type Job struct {
	ID           string          `badgerhold:"key" json:"id"`
	Type         JobType         `badgerhold:"index" json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       JobStatus       `badgerhold:"index" json:"status"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewJob creates a pending job with an encoded payload
func NewJob(jobType JobType, payload interface{}, maxAttempts int) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Payload:     data,
		Status:      JobStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now(),
	}, nil
}

// DecodePayload unmarshals the job payload into out
func (j *Job) DecodePayload(out interface{}) error {
	return json.Unmarshal(j.Payload, out)
}

// AttemptsExhausted reports whether the job has used up its retry budget
func (j *Job) AttemptsExhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
