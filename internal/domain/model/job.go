package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

type JobSource string

const (
	JobSourceUpload JobSource = "upload"
	JobSourceURL    JobSource = "url"
)

// ErrorKind tells apart the reasons a job ended in error. It is not shown to users.
type ErrorKind string

const (
	ErrorKindBackend   ErrorKind = "backend"
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindTimeout   ErrorKind = "timeout"
)

// DefaultFilename is used when a URL has no usable last path segment.
const DefaultFilename = "unknown.pdf"

// Job is the client-side record of one submitted document.
type Job struct {
	ID          string     `json:"job_id"`
	Filename    string     `json:"filename"`
	Source      JobSource  `json:"source"`
	Pages       int        `json:"pages"`
	Summary     string     `json:"summary"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
	Polls       int        `json:"polls"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// NewJob returns a freshly submitted job in the processing state.
func NewJob(id, filename string, source JobSource, now time.Time) *Job {
	return &Job{
		ID:          id,
		Filename:    filename,
		Source:      source,
		Status:      JobStatusProcessing,
		SubmittedAt: now,
	}
}

// Result is the payload embedded in a done status response.
// Nil fields were absent from the payload and leave the job untouched.
type Result struct {
	Pages    *int    `json:"pages"`
	Source   *string `json:"source"`
	Summary  *string `json:"summary"`
	Filename *string `json:"filename"`
}

// Complete merges r into the job and marks it done.
// It returns false when the job is already terminal.
func (j *Job) Complete(r Result, now time.Time) bool {
	if j.Status.Terminal() {
		return false
	}
	if r.Pages != nil {
		j.Pages = *r.Pages
	}
	if r.Source != nil {
		j.Source = JobSource(*r.Source)
	}
	if r.Summary != nil {
		j.Summary = *r.Summary
	}
	if r.Filename != nil && *r.Filename != "" {
		j.Filename = *r.Filename
	}
	j.Status = JobStatusDone
	j.FinishedAt = &now
	return true
}

// Fail marks the job as errored with msg.
// It returns false when the job is already terminal.
func (j *Job) Fail(kind ErrorKind, msg string, now time.Time) bool {
	if j.Status.Terminal() {
		return false
	}
	j.Status = JobStatusError
	j.Error = msg
	j.ErrorKind = kind
	j.FinishedAt = &now
	return true
}

// FilenameFromURL derives a display filename from the last path segment of raw.
func FilenameFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return DefaultFilename
	}
	base := u.EscapedPath()
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if base == "" {
		return DefaultFilename
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return base
}

// ParseResult decodes the result field of a done status response. The service
// sends it as a JSON-encoded string; a plain object is accepted as well.
func ParseResult(raw json.RawMessage) (Result, error) {
	var r Result
	raw = json.RawMessage(bytes.TrimSpace(raw))
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return r, errors.New("result missing")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return r, fmt.Errorf("decode result string: %w", err)
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}
