package usecase

import (
	"fmt"
	"strings"
	"time"

	"pdf-summarizer/internal/domain/model"
)

// GeneratedAtLayout formats the footer timestamp of a transcript.
const GeneratedAtLayout = "02/01/2006 15:04:05 MST"

// Transcript is a downloadable plain-text export of a finished job.
type Transcript struct {
	Filename string
	Body     string
}

// NewTranscript renders the export of job. The full summary is always used,
// whatever the job's expand state.
func NewTranscript(job model.Job, generatedAt time.Time) Transcript {
	var b strings.Builder
	fmt.Fprintf(&b, "# Summary PDF: %s\n\n", job.Filename)
	fmt.Fprintf(&b, "**Pages:** %d\n", job.Pages)
	fmt.Fprintf(&b, "**Source:** %s\n\n", job.Source)
	b.WriteString("**Summary:**\n")
	b.WriteString(job.Summary)
	fmt.Fprintf(&b, "\n\nGenerated on %s", generatedAt.Format(GeneratedAtLayout))
	return Transcript{Filename: TranscriptFilename(job.Filename), Body: b.String()}
}

// TranscriptFilename returns summary-<name>.txt with a trailing .pdf removed.
func TranscriptFilename(filename string) string {
	name := filename
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	return "summary-" + name + ".txt"
}
