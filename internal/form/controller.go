// Package form holds the generation form state and the transitions driven by
// submission and status polling. It performs no I/O of its own beyond the
// create-job call in Submit; front-ends decide how and when to poll.
package form

import (
	"context"
	"errors"
	"strings"

	"postcreator/internal/domain"
	"postcreator/internal/poller"
	"postcreator/internal/providers/postapi"
)

// User-visible messages.
const (
	MsgEmptyTopic      = "Please enter a topic"
	MsgStarting        = "Starting generation..."
	MsgSubmitFailed    = "Failed to generate post"
	MsgGenerationFail  = "Generation failed"
	MsgStatusFailed    = "Failed to check job status"
	MsgPollingTimedOut = "Generation timed out"
)

// JobCreator starts a generation job.
type JobCreator interface {
	CreateJob(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// State is the single state container of a form instance.
type State struct {
	Topic    string
	Industry string
	Tone     string
	Audience string

	Loading  bool
	Progress string
	JobID    string
	Result   *domain.GenerationResult
	Error    string
}

// Controller applies form transitions. It is not safe for concurrent use;
// callers that poll from another goroutine must serialize access.
type Controller struct {
	state State
}

// New returns a controller with the default option selection.
func New() *Controller {
	return &Controller{state: State{
		Industry: domain.DefaultIndustry,
		Tone:     domain.DefaultTone,
		Audience: domain.DefaultAudience,
	}}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) SetTopic(v string)    { c.state.Topic = v }
func (c *Controller) SetIndustry(v string) { c.state.Industry = v }
func (c *Controller) SetTone(v string)     { c.state.Tone = v }
func (c *Controller) SetAudience(v string) { c.state.Audience = v }

// CanSubmit mirrors the enabled state of the submit button.
func (c *Controller) CanSubmit() bool {
	return !c.state.Loading && strings.TrimSpace(c.state.Topic) != ""
}

// Prepare validates the form and, on success, enters the in-progress state
// with the previous result and error cleared. Any job still being tracked is
// abandoned. On failure no state other than Error changes.
func (c *Controller) Prepare() (domain.GenerationRequest, error) {
	req := domain.GenerationRequest{
		Topic:    c.state.Topic,
		Industry: c.state.Industry,
		Tone:     c.state.Tone,
		Audience: c.state.Audience,
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		if errors.Is(err, domain.ErrEmptyTopic) {
			c.state.Error = MsgEmptyTopic
		} else {
			c.state.Error = err.Error()
		}
		return domain.GenerationRequest{}, err
	}
	c.state.Loading = true
	c.state.Error = ""
	c.state.Result = nil
	c.state.JobID = ""
	c.state.Progress = MsgStarting
	return req, nil
}

// Accepted records the job identifier returned by the create-job call.
func (c *Controller) Accepted(jobID string) {
	c.state.JobID = jobID
}

// Rejected leaves the in-progress state after a failed create-job call.
func (c *Controller) Rejected(err error) {
	msg, ok := postapi.ServerMessage(err)
	if !ok {
		msg = MsgSubmitFailed
	}
	c.state.Error = msg
	c.state.Loading = false
	c.state.JobID = ""
}

// Submit validates the form and creates a job. A validation failure makes no
// call to api.
func (c *Controller) Submit(ctx context.Context, api JobCreator) (string, error) {
	req, err := c.Prepare()
	if err != nil {
		return "", err
	}
	jobID, err := api.CreateJob(ctx, req)
	if err != nil {
		c.Rejected(err)
		return "", err
	}
	c.Accepted(jobID)
	return jobID, nil
}

// Tracking reports whether jobID is the job currently being followed.
func (c *Controller) Tracking(jobID string) bool {
	return c.state.Loading && jobID != "" && c.state.JobID == jobID
}

// Observe applies one status observation for jobID. It reports false and
// changes nothing when jobID is not the tracked job.
func (c *Controller) Observe(jobID string, job *domain.Job) bool {
	if !c.Tracking(jobID) || job == nil {
		return false
	}
	c.state.Progress = job.Progress
	switch job.Status {
	case domain.JobStatusCompleted:
		c.state.Result = job.Result
		c.finish()
	case domain.JobStatusFailed:
		msg := job.Error
		if strings.TrimSpace(msg) == "" {
			msg = MsgGenerationFail
		}
		c.state.Error = msg
		c.finish()
	}
	return true
}

// Abort ends tracking of jobID after a polling failure. ErrExhausted maps to
// the timeout message, anything else to the generic status failure.
func (c *Controller) Abort(jobID string, err error) bool {
	if !c.Tracking(jobID) {
		return false
	}
	if errors.Is(err, poller.ErrExhausted) {
		c.state.Error = MsgPollingTimedOut
	} else {
		c.state.Error = MsgStatusFailed
	}
	c.finish()
	return true
}

func (c *Controller) finish() {
	c.state.Loading = false
	c.state.JobID = ""
}
