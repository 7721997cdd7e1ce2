package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pdf-summarizer/internal/domain"
	"pdf-summarizer/internal/domain/ports/adapter"
	"pdf-summarizer/internal/infra/logging"
	"pdf-summarizer/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ adapter.SummarizerAPI = (*Client)(nil)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the summarization job API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid summarizer base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l := logger.With().Str("component", "SummarizerClient").Logger()
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     &l,
	}, nil
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// SubmitFile posts the PDF as the multipart field "file" to /upload-pdf.
func (c *Client) SubmitFile(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-pdf", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.submit(req, "upload-pdf")
}

// SubmitURL posts {"url": ...} to /upload-url.
func (c *Client) SubmitURL(ctx context.Context, pdfURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"url": pdfURL})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-url", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.submit(req, "upload-url")
}

func (c *Client) submit(req *http.Request, endpoint string) (string, error) {
	resp, err := c.do(req, endpoint)
	if err != nil {
		return "", &domain.SubmitError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.SubmitError{
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
			Cause:   fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode),
		}
	}

	var out jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.SubmitError{Status: resp.StatusCode, Cause: fmt.Errorf("decode %s response: %w", endpoint, err)}
	}
	if out.JobID == "" {
		return "", &domain.SubmitError{Status: resp.StatusCode, Cause: errors.New("response carries no job_id")}
	}
	return out.JobID, nil
}

// Status fetches /status/{job_id}. Any non-2xx answer is an error.
func (c *Client) Status(ctx context.Context, jobID string) (*adapter.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, "status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorMessage(resp.Body)
		if msg != "" {
			return nil, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var out adapter.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, endpoint string) (*http.Response, error) {
	traceID := logging.TraceID(req.Context())
	if traceID == "" {
		traceID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", traceID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveAPICall(endpoint, 0, elapsed)
		c.log.Debug().Err(err).Str("endpoint", endpoint).Str("trace_id", traceID).Msg("request failed")
		return nil, err
	}
	metrics.ObserveAPICall(endpoint, resp.StatusCode, elapsed)
	c.log.Debug().
		Str("endpoint", endpoint).
		Str("trace_id", traceID).
		Int("code", resp.StatusCode).
		Dur("duration", elapsed).
		Msg("request done")
	return resp, nil
}

// readErrorMessage extracts "error" or "detail" from a JSON error body.
func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var e errorResponse
	if err := json.Unmarshal(b, &e); err != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}
