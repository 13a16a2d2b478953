package handlers

import (
	"bytes"
	"context"
	"net/http"

	"postcreator/internal/domain"
	"postcreator/internal/form"
	"postcreator/internal/middleware"
	"postcreator/internal/poller"
	"postcreator/internal/present"
	"postcreator/internal/providers/postapi"
)

// refreshSeconds is how often the page reloads while a job is in flight.
const refreshSeconds = 2

type option struct {
	Value    string
	Selected bool
}

type pageData struct {
	State      form.State
	CanSubmit  bool
	Industries []option
	Tones      []option
	Audiences  []option
	Chips      []present.Chip
	Refresh    int
}

type stateResponse struct {
	Topic    string                   `json:"topic"`
	Industry string                   `json:"industry"`
	Tone     string                   `json:"tone"`
	Audience string                   `json:"audience"`
	Loading  bool                     `json:"loading"`
	Progress string                   `json:"progress"`
	JobID    string                   `json:"job_id,omitempty"`
	Result   *domain.GenerationResult `json:"result,omitempty"`
	Error    string                   `json:"error,omitempty"`
	Words    int                      `json:"words"`
	Warning  bool                     `json:"word_warning"`
}

func options(values []string, selected string) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		out = append(out, option{Value: v, Selected: v == selected})
	}
	return out
}

func newPageData(st form.State, canSubmit bool) pageData {
	data := pageData{
		State:      st,
		CanSubmit:  canSubmit,
		Industries: options(domain.Industries, st.Industry),
		Tones:      options(domain.Tones, st.Tone),
		Audiences:  options(domain.Audiences, st.Audience),
		Chips:      present.Chips(st.Result),
	}
	if st.Loading {
		data.Refresh = refreshSeconds
	}
	return data
}

// current returns the caller's form state, or a fresh form's state when the
// request carries no known session. Reads never create a session.
func (a *App) current(r *http.Request) (form.State, bool) {
	if sess, ok := a.sessions.find(r); ok {
		return sess.snapshot()
	}
	fresh := form.New()
	return fresh.State(), fresh.CanSubmit()
}

// Index renders the form together with the session's current state.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	st, canSubmit := a.current(r)
	a.render(w, http.StatusOK, newPageData(st, canSubmit))
}

// Generate validates the submitted form, creates a job and starts tracking it.
// Any job the session was tracking before is abandoned. The session lock is
// not held during the create-job call.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form payload")
		return
	}
	sess := a.sessions.lookup(w, r)
	rid := middleware.RequestIDFromContext(r.Context())

	sess.mu.Lock()
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.form.SetTopic(r.PostFormValue("topic"))
	if v := r.PostFormValue("industry"); v != "" {
		sess.form.SetIndustry(v)
	}
	if v := r.PostFormValue("tone"); v != "" {
		sess.form.SetTone(v)
	}
	if v := r.PostFormValue("audience"); v != "" {
		sess.form.SetAudience(v)
	}
	req, err := sess.form.Prepare()
	sess.submits++
	seq := sess.submits
	st, canSubmit := sess.form.State(), sess.form.CanSubmit()
	sess.mu.Unlock()
	if err != nil {
		a.render(w, http.StatusUnprocessableEntity, newPageData(st, canSubmit))
		return
	}

	jobID, err := a.api.CreateJob(postapi.WithRequestID(r.Context(), rid), req)

	sess.mu.Lock()
	latest := sess.submits == seq
	if latest {
		if err != nil {
			sess.form.Rejected(err)
		} else {
			sess.form.Accepted(jobID)
			ctx, cancel := context.WithCancel(postapi.WithRequestID(a.ctx, rid))
			sess.cancel = cancel
			go a.track(ctx, sess, jobID)
		}
	}
	st, canSubmit = sess.form.State(), sess.form.CanSubmit()
	sess.mu.Unlock()

	switch {
	case !latest:
		a.logger.Debug().Str("job_id", jobID).Str("request_id", rid).Msg("web: submit superseded by a newer one")
	case err != nil:
		a.logger.Error().Err(err).Str("request_id", rid).Msg("web: create job failed")
		a.render(w, http.StatusBadGateway, newPageData(st, canSubmit))
		return
	default:
		a.logger.Info().Str("job_id", jobID).Str("request_id", rid).Str("topic", st.Topic).Msg("web: generation started")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// State returns the session's form state as JSON.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	st, _ := a.current(r)
	resp := stateResponse{
		Topic:    st.Topic,
		Industry: st.Industry,
		Tone:     st.Tone,
		Audience: st.Audience,
		Loading:  st.Loading,
		Progress: st.Progress,
		JobID:    st.JobID,
		Result:   st.Result,
		Error:    st.Error,
	}
	if st.Result != nil {
		chip := present.WordIndicator(st.Result.Post)
		resp.Words = present.WordCount(st.Result.Post)
		resp.Warning = chip.Warning
	}
	a.json(w, http.StatusOK, resp)
}

// track polls jobID until it finishes and folds each observation into the
// session's form. It exits quietly when ctx is canceled by a newer submit or
// by Close.
func (a *App) track(ctx context.Context, sess *session, jobID string) {
	fetch := func(ctx context.Context) (*domain.Job, error) {
		return a.api.JobStatus(ctx, jobID)
	}
	observe := func(job *domain.Job) {
		sess.mu.Lock()
		sess.form.Observe(jobID, job)
		sess.mu.Unlock()
	}
	job, err := poller.Run(ctx, a.policy, fetch, observe)
	switch {
	case err == nil:
		a.logger.Info().Str("job_id", jobID).Str("status", string(job.Status)).Msg("web: job finished")
	case ctx.Err() != nil:
		a.logger.Debug().Str("job_id", jobID).Msg("web: tracking abandoned")
	default:
		a.logger.Warn().Err(err).Str("job_id", jobID).Msg("web: tracking stopped")
		sess.mu.Lock()
		sess.form.Abort(jobID, err)
		sess.mu.Unlock()
	}
}

func (a *App) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := a.pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		a.logger.Error().Err(err).Msg("web: render page failed")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		a.logger.Error().Err(err).Msg("web: write response failed")
	}
}
