package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"postcreator/internal/domain"
	"postcreator/internal/form"
	"postcreator/internal/poller"
	"postcreator/internal/providers/postapi"
)

type stubAPI struct {
	mu        sync.Mutex
	created   []domain.GenerationRequest
	createErr error
	nextID    func(n int) string
	status    func(jobID string, call int) (*domain.Job, error)
	calls     map[string]int
	healthErr error

	// holdFirst, when set, parks the first CreateJob call after signalling
	// entered until the channel is closed.
	holdFirst chan struct{}
	entered   chan struct{}
}

func (s *stubAPI) CreateJob(ctx context.Context, req domain.GenerationRequest) (string, error) {
	s.mu.Lock()
	s.created = append(s.created, req)
	n := len(s.created)
	createErr, nextID := s.createErr, s.nextID
	s.mu.Unlock()

	if n == 1 && s.holdFirst != nil {
		s.entered <- struct{}{}
		<-s.holdFirst
	}
	if createErr != nil {
		return "", createErr
	}
	if nextID != nil {
		return nextID(n), nil
	}
	return "abc123", nil
}

func (s *stubAPI) JobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[jobID]++
	call := s.calls[jobID]
	status := s.status
	s.mu.Unlock()
	if status == nil {
		return &domain.Job{ID: jobID, Status: domain.JobStatusRunning, Progress: "Working"}, nil
	}
	return status(jobID, call)
}

func (s *stubAPI) Health(ctx context.Context) (*postapi.Health, error) {
	if s.healthErr != nil {
		return nil, s.healthErr
	}
	return &postapi.Health{Status: "healthy", Service: "linkedin-post-generator"}, nil
}

func (s *stubAPI) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func fastPolicy() poller.Policy {
	return poller.Policy{InitialDelay: time.Millisecond, Interval: time.Millisecond, MaxAttempts: 50}
}

func newTestApp(t *testing.T, api API, policy poller.Policy) *App {
	t.Helper()
	app, err := NewApp(Options{API: api, Policy: policy})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func completedJob(jobID string) *domain.Job {
	return &domain.Job{
		ID:     jobID,
		Status: domain.JobStatusCompleted,
		Result: &domain.GenerationResult{
			Post:     "Hello world this is a post",
			Topic:    "AI trends",
			Industry: "Technology",
			Tone:     "professional",
			Audience: "professionals",
		},
	}
}

func postForm(t *testing.T, app *App, cookie *http.Cookie, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	app.Generate(rr, req)
	return rr
}

func get(t *testing.T, handler http.HandlerFunc, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func sessionCookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("response did not set %s cookie", sessionCookie)
	return nil
}

func waitForState(t *testing.T, app *App, cookie *http.Cookie, done func(stateResponse) bool) stateResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rr := get(t, app.State, "/state", cookie)
		var st stateResponse
		if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if done(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("state did not settle, last = %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func aiTrends() url.Values {
	return url.Values{
		"topic":    {"  AI trends  "},
		"industry": {"Technology"},
		"tone":     {"professional"},
		"audience": {"professionals"},
	}
}

func TestIndexRendersDefaults(t *testing.T) {
	app := newTestApp(t, &stubAPI{}, fastPolicy())
	rr := get(t, app.Index, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Generate LinkedIn Post",
		`<button id="submit" type="submit" disabled>`,
		`<option value="Technology" selected>Technology</option>`,
		`<option value="professional" selected>Professional</option>`,
		`<option value="software engineers">Software Engineers</option>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, `http-equiv="refresh"`) {
		t.Errorf("idle page should not auto-refresh")
	}
}

func TestReadsDoNotCreateSessions(t *testing.T) {
	app := newTestApp(t, &stubAPI{}, fastPolicy())
	for i := 0; i < 500; i++ {
		if rr := get(t, app.Index, "/", nil); len(rr.Result().Cookies()) != 0 {
			t.Fatalf("GET / set a cookie")
		}
		get(t, app.State, "/state", nil)
		get(t, app.State, "/state", &http.Cookie{Name: sessionCookie, Value: "unknown"})
	}
	if n := app.sessions.len(); n != 0 {
		t.Fatalf("sessions = %d, want 0", n)
	}
}

func TestIdleSessionsEvicted(t *testing.T) {
	app, err := NewApp(Options{
		API:         &stubAPI{},
		Policy:      poller.Policy{InitialDelay: time.Hour, Interval: time.Hour},
		SessionIdle: time.Minute,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(app.Close)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	app.sessions.now = func() time.Time { return clock }

	kept := sessionCookieFrom(t, postForm(t, app, nil, aiTrends()))
	dropped := sessionCookieFrom(t, postForm(t, app, nil, aiTrends()))
	app.sessions.mu.Lock()
	droppedSess := app.sessions.items[dropped.Value]
	app.sessions.mu.Unlock()
	if n := app.sessions.len(); n != 2 {
		t.Fatalf("sessions = %d, want 2", n)
	}

	clock = clock.Add(45 * time.Second)
	get(t, app.State, "/state", kept)
	clock = clock.Add(45 * time.Second)
	get(t, app.Index, "/", nil)

	if n := app.sessions.len(); n != 1 {
		t.Fatalf("sessions = %d, want 1 after the idle window", n)
	}
	droppedSess.mu.Lock()
	stopped := droppedSess.cancel == nil
	droppedSess.mu.Unlock()
	if !stopped {
		t.Fatalf("evicted session still has a running tracker")
	}

	rr := get(t, app.State, "/state", kept)
	var st stateResponse
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if !st.Loading || st.Topic != "AI trends" {
		t.Fatalf("active session lost its state: %+v", st)
	}
}

func TestGenerateEmptyTopicMakesNoCall(t *testing.T) {
	api := &stubAPI{}
	app := newTestApp(t, api, fastPolicy())

	rr := postForm(t, app, nil, url.Values{"topic": {"   "}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), form.MsgEmptyTopic) {
		t.Fatalf("page missing validation message")
	}
	if !strings.Contains(rr.Body.String(), `<button id="submit" type="submit" disabled>`) {
		t.Fatalf("submit button should be disabled for a blank topic")
	}
	if n := api.createdCount(); n != 0 {
		t.Fatalf("create calls = %d, want 0", n)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	api := &stubAPI{
		status: func(jobID string, call int) (*domain.Job, error) {
			if call == 1 {
				return &domain.Job{ID: jobID, Status: domain.JobStatusRunning, Progress: "Researching topic"}, nil
			}
			return completedJob(jobID), nil
		},
	}
	app := newTestApp(t, api, fastPolicy())

	rr := postForm(t, app, nil, aiTrends())
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/" {
		t.Fatalf("Location = %q, want /", loc)
	}
	cookie := sessionCookieFrom(t, rr)

	api.mu.Lock()
	got := api.created[0]
	api.mu.Unlock()
	want := domain.GenerationRequest{Topic: "AI trends", Industry: "Technology", Tone: "professional", Audience: "professionals"}
	if got != want {
		t.Fatalf("request = %+v, want %+v", got, want)
	}

	st := waitForState(t, app, cookie, func(st stateResponse) bool { return !st.Loading })
	if st.Error != "" {
		t.Fatalf("unexpected error %q", st.Error)
	}
	if st.Result == nil || st.Result.Post != "Hello world this is a post" {
		t.Fatalf("result = %+v", st.Result)
	}
	if st.Words != 6 || st.Warning {
		t.Fatalf("words = %d warning = %v, want 6 false", st.Words, st.Warning)
	}
	if st.JobID != "" {
		t.Fatalf("job id should be cleared, got %q", st.JobID)
	}

	page := get(t, app.Index, "/", cookie).Body.String()
	for _, want := range []string{"Hello world this is a post", "6 words", "Topic: AI trends"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestGenerateLoadingPageRefreshes(t *testing.T) {
	api := &stubAPI{}
	app := newTestApp(t, api, poller.Policy{InitialDelay: time.Hour, Interval: time.Hour})

	cookie := sessionCookieFrom(t, postForm(t, app, nil, aiTrends()))
	rr := get(t, app.Index, "/", cookie)
	body := rr.Body.String()
	for _, want := range []string{`http-equiv="refresh"`, form.MsgStarting, "Generating...", "disabled"} {
		if !strings.Contains(body, want) {
			t.Errorf("loading page missing %q", want)
		}
	}
}

func TestGenerateShowsServerError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &postapi.APIError{StatusCode: 500, Message: "Missing required field: topic"}, "Missing required field: topic"},
		{"transport", errors.New("connection refused"), form.MsgSubmitFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, &stubAPI{createErr: tc.err}, fastPolicy())
			rr := postForm(t, app, nil, aiTrends())
			if rr.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.want) {
				t.Fatalf("page missing %q", tc.want)
			}
			if strings.Contains(rr.Body.String(), `http-equiv="refresh"`) {
				t.Fatalf("failed submit should not leave the page loading")
			}
		})
	}
}

func TestGenerateStatusFailures(t *testing.T) {
	cases := []struct {
		name   string
		status func(jobID string, call int) (*domain.Job, error)
		want   string
	}{
		{
			"backend failure text",
			func(jobID string, _ int) (*domain.Job, error) {
				return &domain.Job{ID: jobID, Status: domain.JobStatusFailed, Error: "LLM quota exceeded"}, nil
			},
			"LLM quota exceeded",
		},
		{
			"failed without text",
			func(jobID string, _ int) (*domain.Job, error) {
				return &domain.Job{ID: jobID, Status: domain.JobStatusFailed}, nil
			},
			form.MsgGenerationFail,
		},
		{
			"transport error",
			func(string, int) (*domain.Job, error) { return nil, errors.New("connection reset") },
			form.MsgStatusFailed,
		},
		{
			"never finishes",
			nil,
			form.MsgPollingTimedOut,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := fastPolicy()
			policy.MaxAttempts = 3
			app := newTestApp(t, &stubAPI{status: tc.status}, policy)
			cookie := sessionCookieFrom(t, postForm(t, app, nil, aiTrends()))
			st := waitForState(t, app, cookie, func(st stateResponse) bool { return !st.Loading })
			if st.Error != tc.want {
				t.Fatalf("error = %q, want %q", st.Error, tc.want)
			}
			if st.Result != nil {
				t.Fatalf("result should be empty, got %+v", st.Result)
			}
		})
	}
}

func TestResubmitAbandonsPreviousJob(t *testing.T) {
	api := &stubAPI{
		nextID: func(n int) string {
			if n == 1 {
				return "job-1"
			}
			return "job-2"
		},
		status: func(jobID string, _ int) (*domain.Job, error) {
			if jobID == "job-1" {
				return &domain.Job{ID: jobID, Status: domain.JobStatusRunning, Progress: "stuck"}, nil
			}
			job := completedJob(jobID)
			job.Result.Topic = "Second topic"
			return job, nil
		},
	}
	policy := fastPolicy()
	policy.MaxAttempts = 0
	app := newTestApp(t, api, policy)

	cookie := sessionCookieFrom(t, postForm(t, app, nil, aiTrends()))
	second := aiTrends()
	second.Set("topic", "Second topic")
	if rr := postForm(t, app, cookie, second); rr.Code != http.StatusSeeOther {
		t.Fatalf("second submit status = %d, want 303", rr.Code)
	}

	st := waitForState(t, app, cookie, func(st stateResponse) bool { return !st.Loading })
	if st.Result == nil || st.Result.Topic != "Second topic" {
		t.Fatalf("result = %+v, want the second job's result", st.Result)
	}
	if st.Error != "" {
		t.Fatalf("unexpected error %q", st.Error)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	app := newTestApp(t, &stubAPI{}, poller.Policy{InitialDelay: time.Hour, Interval: time.Hour})
	first := sessionCookieFrom(t, postForm(t, app, nil, aiTrends()))
	other := aiTrends()
	other.Set("topic", "Remote work")
	second := sessionCookieFrom(t, postForm(t, app, nil, other))
	if first.Value == second.Value {
		t.Fatalf("expected distinct session ids")
	}
	for cookie, want := range map[*http.Cookie]string{first: "AI trends", second: "Remote work"} {
		rr := get(t, app.State, "/state", cookie)
		var st stateResponse
		if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if st.Topic != want {
			t.Fatalf("topic = %q, want %q", st.Topic, want)
		}
	}
	if n := app.sessions.len(); n != 2 {
		t.Fatalf("sessions = %d, want 2", n)
	}
}

func TestStateReadableDuringCreate(t *testing.T) {
	api := &stubAPI{
		holdFirst: make(chan struct{}),
		entered:   make(chan struct{}, 1),
		status: func(jobID string, _ int) (*domain.Job, error) {
			return completedJob(jobID), nil
		},
	}
	app := newTestApp(t, api, fastPolicy())
	cookie := sessionCookieFrom(t, postForm(t, app, nil, url.Values{"topic": {""}}))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- postForm(t, app, cookie, aiTrends())
	}()
	select {
	case <-api.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("create call never started")
	}

	read := make(chan stateResponse, 1)
	go func() {
		var st stateResponse
		_ = json.NewDecoder(get(t, app.State, "/state", cookie).Body).Decode(&st)
		read <- st
	}()
	select {
	case st := <-read:
		if !st.Loading || st.Progress != form.MsgStarting {
			t.Fatalf("state during create = %+v", st)
		}
	case <-time.After(2 * time.Second):
		close(api.holdFirst)
		t.Fatalf("state request blocked behind the create call")
	}

	close(api.holdFirst)
	if rr := <-done; rr.Code != http.StatusSeeOther {
		t.Fatalf("submit status = %d, want 303", rr.Code)
	}
	st := waitForState(t, app, cookie, func(st stateResponse) bool { return !st.Loading })
	if st.Result == nil || st.Error != "" {
		t.Fatalf("final state = %+v", st)
	}
}

func TestSlowCreateSupersededByNewerSubmit(t *testing.T) {
	api := &stubAPI{
		holdFirst: make(chan struct{}),
		entered:   make(chan struct{}, 1),
		nextID: func(n int) string {
			if n == 1 {
				return "job-1"
			}
			return "job-2"
		},
		status: func(jobID string, _ int) (*domain.Job, error) {
			job := completedJob(jobID)
			job.Result.Topic = jobID
			return job, nil
		},
	}
	app := newTestApp(t, api, fastPolicy())
	cookie := sessionCookieFrom(t, postForm(t, app, nil, url.Values{"topic": {""}}))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- postForm(t, app, cookie, aiTrends())
	}()
	<-api.entered

	if rr := postForm(t, app, cookie, aiTrends()); rr.Code != http.StatusSeeOther {
		t.Fatalf("second submit status = %d, want 303", rr.Code)
	}
	waitForState(t, app, cookie, func(st stateResponse) bool { return !st.Loading })

	close(api.holdFirst)
	if rr := <-done; rr.Code != http.StatusSeeOther {
		t.Fatalf("first submit status = %d, want 303", rr.Code)
	}
	st := waitForState(t, app, cookie, func(st stateResponse) bool { return !st.Loading })
	if st.Result == nil || st.Result.Topic != "job-2" || st.JobID != "" {
		t.Fatalf("state = %+v, want job-2 result kept", st)
	}
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, &stubAPI{}, fastPolicy())
	if rr := get(t, app.Health, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
	rr := get(t, app.BackendHealth, "/healthz/backend", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "linkedin-post-generator") {
		t.Fatalf("backend health = %d %s", rr.Code, rr.Body.String())
	}

	down := newTestApp(t, &stubAPI{healthErr: errors.New("dial tcp: refused")}, fastPolicy())
	rr = get(t, down.BackendHealth, "/healthz/backend", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("backend health status = %d, want 502", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "backend_unavailable") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestNewAppRequiresAPI(t *testing.T) {
	if _, err := NewApp(Options{}); err == nil {
		t.Fatalf("expected error without api client")
	}
}
