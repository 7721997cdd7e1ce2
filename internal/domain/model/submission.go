package model

import (
	"strings"

	"pdf-summarizer/internal/domain"
)

// Upload is a local PDF selected for submission.
type Upload struct {
	Name string
	Data []byte
}

// Submission is the state of the submit form. At most one of File or URL is set.
type Submission struct {
	File *Upload
	URL  string
}

// WithFile selects a file and clears any entered URL.
func (s Submission) WithFile(name string, data []byte) Submission {
	return Submission{File: &Upload{Name: name, Data: data}}
}

// WithURL sets the URL and clears any selected file.
func (s Submission) WithURL(raw string) Submission {
	return Submission{URL: strings.TrimSpace(raw)}
}

// Source reports which input the submission carries.
func (s Submission) Source() JobSource {
	if s.File != nil {
		return JobSourceUpload
	}
	return JobSourceURL
}

// Filename is the name the job record will be created with.
func (s Submission) Filename() string {
	if s.File != nil {
		return s.File.Name
	}
	return FilenameFromURL(s.URL)
}

// Validate checks that exactly one input is present.
func (s Submission) Validate() error {
	if s.File != nil && s.URL != "" {
		return domain.ErrInvalidArgument
	}
	if s.File == nil && s.URL == "" {
		return domain.ErrNoInput
	}
	return nil
}
