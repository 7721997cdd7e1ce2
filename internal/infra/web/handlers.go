package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pdf-summarizer/internal/domain"
	"pdf-summarizer/internal/domain/model"
	"pdf-summarizer/internal/infra/logging"
	"pdf-summarizer/internal/usecase"

	"github.com/go-chi/chi/v5"
)

const (
	modeUpload = "upload"
	modeURL    = "url"
)

type pageData struct {
	Lang      string
	Cards     []usecase.Card
	Mode      string
	URL       string
	FormError string
	Refresh   int // seconds; 0 disables the meta refresh
}

// formMode returns the input mode the page was showing, upload by default.
func formMode(r *http.Request) string {
	if r.FormValue("mode") == modeURL {
		return modeURL
	}
	return modeUpload
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageData{Mode: formMode(r)})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	jobs := s.tracker.List()
	data.Lang = s.opts.Lang
	data.Cards = usecase.BuildCards(jobs)
	// a reload would drop the inline form error, so the error page never refreshes
	if data.FormError == "" && anyProcessing(jobs) {
		data.Refresh = int(s.opts.RefreshEvery.Round(time.Second) / time.Second)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("render page")
	}
}

func anyProcessing(jobs []usecase.TrackedJob) bool {
	for _, j := range jobs {
		if j.Status == model.JobStatusProcessing {
			return true
		}
	}
	return false
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sub, mode, key := s.readSubmission(w, r)
	data := pageData{Mode: mode, URL: sub.URL}
	if key != "" {
		data.FormError = s.msgs.T(key)
		s.render(w, r, http.StatusBadRequest, data)
		return
	}

	if _, err := s.tracker.Submit(r.Context(), sub); err != nil {
		msg, code := s.submitFailure(err)
		data.FormError = msg
		s.render(w, r, code, data)
		return
	}
	http.Redirect(w, r, "/?mode="+mode, http.StatusSeeOther)
}

// readSubmission parses the submit form. A non-empty key names the message to
// show when the selected input is missing or the form is unreadable.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (model.Submission, string, string) {
	if s.opts.MaxUploadBytes > 0 {
		// headroom for the multipart envelope; the exact limit is enforced by the tracker
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return model.Submission{}, modeUpload, "err_too_large"
		}
		return model.Submission{}, modeUpload, "err_bad_form"
	}
	mode := r.FormValue("mode")
	rawURL := strings.TrimSpace(r.FormValue("url"))

	var upload *model.Upload
	if f, hdr, err := r.FormFile("file"); err == nil {
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return model.Submission{}, mode, "err_bad_form"
		}
		upload = &model.Upload{Name: hdr.Filename, Data: data}
	}

	var sub model.Submission
	switch mode {
	case modeUpload:
		if upload == nil {
			return sub, mode, "err_no_file"
		}
		sub = sub.WithFile(upload.Name, upload.Data)
	case modeURL:
		if rawURL == "" {
			return sub, mode, "err_no_url"
		}
		sub = sub.WithURL(rawURL)
	default:
		// API clients may omit the mode; the file wins when both are sent.
		mode = modeUpload
		if upload != nil {
			sub = sub.WithFile(upload.Name, upload.Data)
		} else if rawURL != "" {
			mode = modeURL
			sub = sub.WithURL(rawURL)
		}
	}
	return sub, mode, ""
}

// submitFailure maps a submit error to its message and response code.
func (s *Server) submitFailure(err error) (string, int) {
	msg := s.msgs.T("err_submit")
	var se *domain.SubmitError
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	switch {
	case errors.Is(err, domain.ErrNoInput),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrNotPDF):
		return msg, http.StatusBadRequest
	case se != nil && se.Status >= 400 && se.Status < 500:
		return msg, http.StatusUnprocessableEntity
	default:
		return msg, http.StatusBadGateway
	}
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.tracker.Toggle(id); err != nil {
		s.httpError(w, err)
		return
	}
	target := "/"
	if formMode(r) == modeURL {
		target = "/?mode=" + modeURL
	}
	http.Redirect(w, r, target+"#job-"+url.PathEscape(id), http.StatusSeeOther)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	tr, err := s.tracker.Download(chi.URLParam(r, "id"))
	if err != nil {
		s.httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": tr.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, tr.Body)
}

func (s *Server) httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, s.msgs.T("err_not_found"), http.StatusNotFound)
	case errors.Is(err, domain.ErrJobNotDone):
		http.Error(w, s.msgs.T("err_not_done"), http.StatusConflict)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// ---- JSON ----

type createJobRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Items []usecase.TrackedJob `json:"items"`
	}{Items: s.tracker.List()})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.tracker.Get(chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: s.msgs.T("err_not_found")})
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// handleCreateJob accepts {"url": ...} as JSON or the same multipart form as the UI.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var sub model.Submission
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		var req createJobRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: s.msgs.T("err_bad_form")})
			return
		}
		sub = sub.WithURL(req.URL)
	} else {
		var key string
		sub, _, key = s.readSubmission(w, r)
		if key != "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: s.msgs.T(key)})
			return
		}
	}

	j, err := s.tracker.Submit(r.Context(), sub)
	if err != nil {
		msg, code := s.submitFailure(err)
		writeJSON(w, code, errorResponse{Error: msg})
		return
	}
	writeJSON(w, http.StatusAccepted, j)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
