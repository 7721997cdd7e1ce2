package adapter

import (
	"context"
	"encoding/json"
)

// StatusResponse mirrors GET /status/{job_id}.
// Result is either a JSON-encoded string or an object; see model.ParseResult.
type StatusResponse struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

// SummarizerAPI is the port for the remote summarization job service.
type SummarizerAPI interface {
	// SubmitFile uploads a PDF and returns the job id assigned by the service.
	SubmitFile(ctx context.Context, filename string, data []byte) (string, error)
	// SubmitURL asks the service to fetch and summarize the PDF at url.
	SubmitURL(ctx context.Context, url string) (string, error)
	// Status fetches the current state of a job.
	Status(ctx context.Context, jobID string) (*StatusResponse, error)
}
