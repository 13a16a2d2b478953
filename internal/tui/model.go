// Package tui implements the terminal rendition of the generation form.
// Status polls are scheduled as timed messages on the bubbletea event loop.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"postcreator/internal/domain"
	"postcreator/internal/form"
	"postcreator/internal/infra"
	"postcreator/internal/poller"
	"postcreator/internal/present"
)

// API is the part of the generation API the terminal form calls.
type API interface {
	form.JobCreator
	JobStatus(ctx context.Context, jobID string) (*domain.Job, error)
}

type Options struct {
	API       API
	Policy    poller.Policy
	Clipboard present.Clipboard
	Logger    *infra.Logger
	// RequestTimeout bounds each API call issued from the event loop.
	RequestTimeout time.Duration
}

type field int

const (
	fieldTopic field = iota
	fieldIndustry
	fieldTone
	fieldAudience
	fieldSubmit
	fieldCount
)

type (
	jobCreatedMsg struct {
		jobID string
		err   error
	}
	pollDueMsg struct{ jobID string }
	statusMsg  struct {
		jobID string
		job   *domain.Job
		err   error
	}
	copiedMsg struct{ err error }
)

type Model struct {
	api       API
	policy    poller.Policy
	clipboard present.Clipboard
	logger    *infra.Logger
	timeout   time.Duration
	now       func() time.Time

	form    *form.Controller
	tracker *poller.Tracker
	input   textinput.Model
	spinner spinner.Model
	focus   field
	notice  string
	width   int
}

func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	input := textinput.New()
	input.Placeholder = "e.g., AI and Machine Learning trends"
	input.CharLimit = 200
	input.Width = 50
	input.Prompt = ""
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = spinnerStyle

	return Model{
		api:       opts.API,
		policy:    opts.Policy,
		clipboard: opts.Clipboard,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
		form:      form.New(),
		input:     input,
		spinner:   spin,
	}
}

// State exposes the form state for callers that outlive the program, such as
// the binary reporting the final result after the terminal is restored.
func (m Model) State() form.State {
	return m.form.State()
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case jobCreatedMsg:
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Msg("tui: create job failed")
			m.form.Rejected(msg.err)
			return m, nil
		}
		m.form.Accepted(msg.jobID)
		m.tracker = m.policy.Start(m.now())
		m.logger.Info().Str("job_id", msg.jobID).Msg("tui: generation started")
		return m, schedulePoll(msg.jobID, m.tracker.FirstDelay())

	case pollDueMsg:
		if !m.form.Tracking(msg.jobID) {
			return m, nil
		}
		return m, m.fetchStatus(msg.jobID)

	case statusMsg:
		return m.handleStatus(msg)

	case copiedMsg:
		if msg.err != nil {
			m.notice = "Copy failed: " + msg.err.Error()
		} else {
			m.notice = "Copied to clipboard"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.form.State().Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus == fieldTopic {
		return m.updateInput(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "down":
		return m.moveFocus(1)
	case "shift+tab", "up":
		return m.moveFocus(-1)
	case "enter":
		return m.submit()
	}

	if m.focus == fieldTopic {
		return m.updateInput(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.cycle(-1)
	case "right", "l", " ":
		m.cycle(1)
	case "c":
		st := m.form.State()
		if st.Result == nil {
			return m, nil
		}
		if m.clipboard == nil {
			m.notice = "Clipboard unavailable"
			return m, nil
		}
		return m, m.copyResult(st.Result)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.form.SetTopic(m.input.Value())
	return m, cmd
}

func (m Model) moveFocus(delta int) (tea.Model, tea.Cmd) {
	m.focus = field((int(m.focus) + delta + int(fieldCount)) % int(fieldCount))
	if m.focus == fieldTopic {
		return m, m.input.Focus()
	}
	m.input.Blur()
	return m, nil
}

// cycle moves the focused option selector through its option set.
func (m Model) cycle(delta int) {
	st := m.form.State()
	switch m.focus {
	case fieldIndustry:
		m.form.SetIndustry(step(domain.Industries, st.Industry, delta))
	case fieldTone:
		m.form.SetTone(step(domain.Tones, st.Tone, delta))
	case fieldAudience:
		m.form.SetAudience(step(domain.Audiences, st.Audience, delta))
	}
}

func step(values []string, current string, delta int) string {
	idx := 0
	for i, v := range values {
		if v == current {
			idx = i
			break
		}
	}
	return values[(idx+delta+len(values))%len(values)]
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.form.State().Loading {
		return m, nil
	}
	m.notice = ""
	m.form.SetTopic(m.input.Value())
	req, err := m.form.Prepare()
	if err != nil {
		return m, nil
	}
	m.tracker = nil
	return m, tea.Batch(m.spinner.Tick, m.createJob(req))
}

func (m Model) createJob(req domain.GenerationRequest) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		jobID, err := api.CreateJob(ctx, req)
		return jobCreatedMsg{jobID: jobID, err: err}
	}
}

func (m Model) fetchStatus(jobID string) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		job, err := api.JobStatus(ctx, jobID)
		return statusMsg{jobID: jobID, job: job, err: err}
	}
}

func schedulePoll(jobID string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return pollDueMsg{jobID: jobID}
	})
}

func (m Model) handleStatus(msg statusMsg) (tea.Model, tea.Cmd) {
	if !m.form.Tracking(msg.jobID) || m.tracker == nil {
		return m, nil
	}
	if msg.err != nil {
		m.logger.Warn().Err(msg.err).Str("job_id", msg.jobID).Msg("tui: status check failed")
		m.form.Abort(msg.jobID, msg.err)
		m.tracker = nil
		return m, nil
	}
	m.form.Observe(msg.jobID, msg.job)
	next, err := m.tracker.Next(msg.job, m.now())
	switch {
	case err != nil:
		m.logger.Warn().Err(err).Str("job_id", msg.jobID).Int("attempts", m.tracker.Attempts()).Msg("tui: polling stopped")
		m.form.Abort(msg.jobID, err)
		m.tracker = nil
		return m, nil
	case next.Done:
		m.logger.Info().Str("job_id", msg.jobID).Str("status", string(msg.job.Status)).Msg("tui: job finished")
		m.tracker = nil
		return m, nil
	}
	return m, schedulePoll(msg.jobID, next.Delay)
}

func (m Model) copyResult(result *domain.GenerationResult) tea.Cmd {
	cb := m.clipboard
	return func() tea.Msg {
		return copiedMsg{err: present.Copy(cb, result)}
	}
}
