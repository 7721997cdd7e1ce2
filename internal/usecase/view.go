package usecase

import (
	"strings"

	"pdf-summarizer/internal/domain/model"
)

// SummaryPreviewRunes is how much of a collapsed summary is shown.
const SummaryPreviewRunes = 200

// Card is the render model of one job.
type Card struct {
	Number      int // 1-based position in submission order
	ID          string
	Filename    string
	Source      string
	Pages       int
	Status      model.JobStatus
	StatusLabel string
	Error       string
	Summary     string // what to display for the current expand state
	Expandable  bool
	Expanded    bool
}

func (c Card) Processing() bool { return c.Status == model.JobStatusProcessing }
func (c Card) Done() bool       { return c.Status == model.JobStatusDone }
func (c Card) Failed() bool     { return c.Status == model.JobStatusError }

// BuildCards derives the render model from the job list. It has no side effects.
func BuildCards(jobs []TrackedJob) []Card {
	cards := make([]Card, 0, len(jobs))
	for i, j := range jobs {
		summary, expandable := DisplaySummary(j.Summary, j.Expanded)
		cards = append(cards, Card{
			Number:      i + 1,
			ID:          j.ID,
			Filename:    j.Filename,
			Source:      string(j.Source),
			Pages:       j.Pages,
			Status:      j.Status,
			StatusLabel: strings.ToUpper(string(j.Status)),
			Error:       j.Error,
			Summary:     summary,
			Expandable:  expandable,
			Expanded:    j.Expanded,
		})
	}
	return cards
}

// DisplaySummary truncates summaries longer than SummaryPreviewRunes unless expanded.
// expandable reports whether a toggle makes any difference.
func DisplaySummary(summary string, expanded bool) (text string, expandable bool) {
	runes := []rune(summary)
	if len(runes) <= SummaryPreviewRunes {
		return summary, false
	}
	if expanded {
		return summary, true
	}
	return string(runes[:SummaryPreviewRunes]) + "...", true
}
