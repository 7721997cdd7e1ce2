package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"pdf-summarizer/internal/domain"
	"pdf-summarizer/internal/domain/model"
	"pdf-summarizer/internal/infra/i18n"
	"pdf-summarizer/internal/infra/logging"
	"pdf-summarizer/internal/usecase"
)

// ---- fake tracker ----

type fakeTracker struct {
	mu        sync.Mutex
	jobs      []usecase.TrackedJob
	submitted []model.Submission
	submitErr error
}

func (f *fakeTracker) Submit(ctx context.Context, sub model.Submission) (usecase.TrackedJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, sub)
	if f.submitErr != nil {
		return usecase.TrackedJob{}, f.submitErr
	}
	if err := sub.Validate(); err != nil {
		return usecase.TrackedJob{}, &domain.SubmitError{Message: "err_no_input", Cause: err}
	}
	j := usecase.TrackedJob{Job: *model.NewJob("new-1", sub.Filename(), sub.Source(), time.Now())}
	f.jobs = append(f.jobs, j)
	return j, nil
}

func (f *fakeTracker) List() []usecase.TrackedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]usecase.TrackedJob(nil), f.jobs...)
}

func (f *fakeTracker) find(id string) (*usecase.TrackedJob, error) {
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			return &f.jobs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTracker) Get(id string) (usecase.TrackedJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, err := f.find(id)
	if err != nil {
		return usecase.TrackedJob{}, err
	}
	return *j, nil
}

func (f *fakeTracker) Toggle(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, err := f.find(id)
	if err != nil {
		return false, err
	}
	j.Expanded = !j.Expanded
	return j.Expanded, nil
}

func (f *fakeTracker) Download(id string) (usecase.Transcript, error) {
	j, err := f.Get(id)
	if err != nil {
		return usecase.Transcript{}, err
	}
	if j.Status != model.JobStatusDone {
		return usecase.Transcript{}, domain.ErrJobNotDone
	}
	return usecase.NewTranscript(j.Job, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)), nil
}

// ---- helpers ----

func newTestServer(t *testing.T, tr *fakeTracker) http.Handler {
	t.Helper()
	s := NewServer(tr, i18n.MustDefault("en"), Options{
		Lang:           "en",
		RefreshEvery:   2 * time.Second,
		MaxUploadBytes: 1 << 20,
	}, logging.Nop())
	return s.Routes()
}

func doRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func doneJob(id, summary string) usecase.TrackedJob {
	return usecase.TrackedJob{Job: model.Job{
		ID:       id,
		Filename: id + ".pdf",
		Source:   model.JobSourceUpload,
		Pages:    5,
		Summary:  summary,
		Status:   model.JobStatusDone,
	}}
}

// ---- tests ----

func TestIndex(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		h := newTestServer(t, &fakeTracker{})
		rec := doRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "No summaries yet") {
			t.Fatal("empty message missing")
		}
		if strings.Contains(body, `http-equiv="refresh"`) {
			t.Fatal("no refresh expected without processing jobs")
		}
	})

	t.Run("processing job refreshes", func(t *testing.T) {
		tr := &fakeTracker{jobs: []usecase.TrackedJob{{Job: *model.NewJob("p1", "a.pdf", model.JobSourceUpload, time.Now())}}}
		body := doRequest(newTestServer(t, tr), httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
		if !strings.Contains(body, `http-equiv="refresh" content="2;url=/?mode=upload"`) {
			t.Fatalf("refresh missing:\n%s", body)
		}
		if !strings.Contains(body, "Job 1: a.pdf") || !strings.Contains(body, "PROCESSING") {
			t.Fatal("processing card not rendered")
		}
	})

	t.Run("done job renders markdown and truncates", func(t *testing.T) {
		long := "## Findings\n\n" + strings.Repeat("word ", 60)
		tr := &fakeTracker{jobs: []usecase.TrackedJob{doneJob("d1", long), doneJob("d2", "<script>alert(1)</script>short")}}
		body := doRequest(newTestServer(t, tr), httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()

		for _, want := range []string{"<h2>Findings</h2>", "...", "Show more", "/jobs/d1/download", "/jobs/d1/toggle", "DONE"} {
			if !strings.Contains(body, want) {
				t.Fatalf("page misses %q", want)
			}
		}
		if strings.Contains(body, "<script>alert(1)</script>") {
			t.Fatal("raw html in summary must not be rendered")
		}
		if strings.Contains(body, "/jobs/d2/toggle") {
			t.Fatal("short summary must not offer a toggle")
		}
	})

	t.Run("error job shows message", func(t *testing.T) {
		j := usecase.TrackedJob{Job: model.Job{ID: "e1", Filename: "e.pdf", Status: model.JobStatusError, Error: "PDF has no text layer"}}
		body := doRequest(newTestServer(t, &fakeTracker{jobs: []usecase.TrackedJob{j}}), httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
		if !strings.Contains(body, "PDF has no text layer") || !strings.Contains(body, "ERROR") {
			t.Fatal("error card not rendered")
		}
	})
}

func TestSubmit(t *testing.T) {
	t.Run("upload mode without file", func(t *testing.T) {
		tr := &fakeTracker{}
		body, ct := multipartBody(t, map[string]string{"mode": "upload"}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/submit", body)
		req.Header.Set("Content-Type", ct)
		rec := doRequest(newTestServer(t, tr), req)

		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Choose a PDF file first!") {
			t.Fatalf("want 400 with message, got %d", rec.Code)
		}
		if len(tr.submitted) != 0 || len(tr.jobs) != 0 {
			t.Fatal("nothing must be submitted")
		}
	})

	t.Run("url mode without url", func(t *testing.T) {
		form := url.Values{"mode": {"url"}}
		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := doRequest(newTestServer(t, &fakeTracker{}), req)
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "Enter a PDF URL first!") {
			t.Fatalf("want 400 with message, got %d", rec.Code)
		}
	})

	t.Run("form error is not refreshed away", func(t *testing.T) {
		tr := &fakeTracker{jobs: []usecase.TrackedJob{{Job: *model.NewJob("p1", "a.pdf", model.JobSourceUpload, time.Now())}}}
		body, ct := multipartBody(t, map[string]string{"mode": "upload"}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/submit", body)
		req.Header.Set("Content-Type", ct)
		rec := doRequest(newTestServer(t, tr), req)

		page := rec.Body.String()
		if rec.Code != http.StatusBadRequest || !strings.Contains(page, "Choose a PDF file first!") {
			t.Fatalf("want 400 with message, got %d", rec.Code)
		}
		if strings.Contains(page, `http-equiv="refresh"`) {
			t.Fatalf("error page must not auto-refresh:\n%s", page)
		}
		if !strings.Contains(page, "PROCESSING") {
			t.Fatal("processing card missing from error page")
		}
	})

	t.Run("file upload", func(t *testing.T) {
		tr := &fakeTracker{}
		body, ct := multipartBody(t, map[string]string{"mode": "upload", "url": "https://ignored.test/x.pdf"}, "paper.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/submit", body)
		req.Header.Set("Content-Type", ct)
		rec := doRequest(newTestServer(t, tr), req)

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("want 303, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(tr.submitted) != 1 {
			t.Fatalf("want one submission, got %d", len(tr.submitted))
		}
		sub := tr.submitted[0]
		if sub.File == nil || sub.File.Name != "paper.pdf" || string(sub.File.Data) != "%PDF-1.4" || sub.URL != "" {
			t.Fatalf("unexpected submission: %+v", sub)
		}
	})

	t.Run("url", func(t *testing.T) {
		tr := &fakeTracker{}
		form := url.Values{"mode": {"url"}, "url": {"  https://example.com/doc.pdf "}}
		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := doRequest(newTestServer(t, tr), req)

		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/?mode=url" {
			t.Fatalf("want redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
		if tr.submitted[0].URL != "https://example.com/doc.pdf" || tr.submitted[0].File != nil {
			t.Fatalf("unexpected submission: %+v", tr.submitted[0])
		}
	})

	t.Run("service rejection is shown near the form", func(t *testing.T) {
		tr := &fakeTracker{submitErr: &domain.SubmitError{Status: 400, Message: "URL must point to a PDF"}}
		form := url.Values{"mode": {"url"}, "url": {"https://example.com/page"}}
		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := doRequest(newTestServer(t, tr), req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("want 422, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "URL must point to a PDF") || !strings.Contains(body, `value="https://example.com/page"`) {
			t.Fatal("error or entered url missing from re-rendered form")
		}
	})
}

func TestToggleAndDownload(t *testing.T) {
	tr := &fakeTracker{jobs: []usecase.TrackedJob{
		doneJob("report", strings.Repeat("x", 250)),
		{Job: *model.NewJob("busy", "busy.pdf", model.JobSourceURL, time.Now())},
	}}
	h := newTestServer(t, tr)

	rec := doRequest(h, httptest.NewRequest(http.MethodPost, "/jobs/report/toggle", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/#job-report" {
		t.Fatalf("toggle: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if j, _ := tr.Get("report"); !j.Expanded {
		t.Fatal("toggle did not expand")
	}
	if j, _ := tr.Get("busy"); j.Expanded {
		t.Fatal("toggle leaked to another job")
	}

	form := url.Values{"mode": {"url"}}
	req := httptest.NewRequest(http.MethodPost, "/jobs/report/toggle", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = doRequest(h, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/?mode=url#job-report" {
		t.Fatalf("toggle in url mode: %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if j, _ := tr.Get("report"); j.Expanded {
		t.Fatal("second toggle did not collapse")
	}

	page := doRequest(h, httptest.NewRequest(http.MethodGet, "/?mode=url", nil)).Body.String()
	if !strings.Contains(page, `<input type="hidden" name="mode" value="url" />`) {
		t.Fatal("toggle form must carry the selected mode")
	}

	if rec := doRequest(h, httptest.NewRequest(http.MethodPost, "/jobs/nope/toggle", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}

	rec = doRequest(h, httptest.NewRequest(http.MethodGet, "/jobs/report/download", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download: %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=summary-report.txt" {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), strings.Repeat("x", 250)) {
		t.Fatal("download must carry the full summary")
	}

	if rec := doRequest(h, httptest.NewRequest(http.MethodGet, "/jobs/busy/download", nil)); rec.Code != http.StatusConflict {
		t.Fatalf("want 409 for unfinished job, got %d", rec.Code)
	}
}

func TestJSONAPI(t *testing.T) {
	tr := &fakeTracker{jobs: []usecase.TrackedJob{doneJob("a", "sum")}}
	h := newTestServer(t, tr)

	rec := doRequest(h, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	var list struct {
		Items []struct {
			ID     string `json:"job_id"`
			Status string `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != "a" || list.Items[0].Status != "done" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if rec := doRequest(h, httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"url":"https://x.test/b.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = doRequest(h, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("want 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       string `json:"job_id"`
		Filename string `json:"filename"`
		Source   string `json:"source"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Filename != "b.pdf" || created.Source != "url" {
		t.Fatalf("unexpected created job: %+v", created)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := doRequest(h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for empty submission, got %d", rec.Code)
	}
}

func TestHealthAndTraceID(t *testing.T) {
	h := newTestServer(t, &fakeTracker{})

	rec := doRequest(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID not set")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	if got := doRequest(h, req).Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("X-Request-ID = %q, want echo", got)
	}
}
