package domain

// JobStatus enumerates the lifecycle states reported by the status endpoint.
type JobStatus string

const (
	JobStatusStarted   JobStatus = "started"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether polling must stop. Unknown values count as in flight.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the client-side view of a remote generation job.
type Job struct {
	ID        string            `json:"-"`
	Status    JobStatus         `json:"status"`
	Progress  string            `json:"progress,omitempty"`
	Result    *GenerationResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
}

// GenerationResult echoes the request parameters next to the generated post.
type GenerationResult struct {
	Post        string `json:"post"`
	Topic       string `json:"topic"`
	Industry    string `json:"industry"`
	Tone        string `json:"tone"`
	Audience    string `json:"audience"`
	WordCount   int    `json:"word_count,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`
}
