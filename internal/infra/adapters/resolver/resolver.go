package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pdf-summarizer/internal/domain/ports/adapter"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

var _ adapter.LinkResolver = (*Resolver)(nil)

// ErrNoPDFLink is returned when a page holds no link that looks like a PDF.
var ErrNoPDFLink = errors.New("no PDF link found on page")

const maxPageBytes = 4 << 20

// Resolver follows a landing page to the PDF it links to. URLs that already
// end in .pdf are returned without a request.
type Resolver struct {
	client *http.Client
	log    *zerolog.Logger
}

func New(timeout time.Duration, logger *zerolog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l := logger.With().Str("component", "LinkResolver").Logger()
	return &Resolver{client: &http.Client{Timeout: timeout}, log: &l}
}

func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", rawURL)
	}
	if hasPDFSuffix(u.Path) {
		return u.String(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "pdf-summarizer/1.0")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: http %d", u, resp.StatusCode)
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "pdf") {
		return u.String(), nil
	}
	if !strings.Contains(ct, "html") {
		return "", fmt.Errorf("unsupported content-type %q for %s", ct, u)
	}

	link, err := findPDFLink(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
	if err != nil {
		return "", err
	}
	r.log.Debug().Str("page", u.String()).Str("pdf", link).Msg("resolved landing page")
	return link, nil
}

// findPDFLink prefers anchors ending in .pdf, then anchors whose text mentions download or pdf.
func findPDFLink(body io.Reader, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var direct, fallback []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		hu, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(hu)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		txt := strings.ToLower(strings.TrimSpace(a.Text()))
		switch {
		case hasPDFSuffix(abs.Path):
			direct = append(direct, abs.String())
		case strings.Contains(txt, "download") || strings.Contains(txt, "pdf"):
			fallback = append(fallback, abs.String())
		}
	})

	if len(direct) > 0 {
		return direct[0], nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return "", ErrNoPDFLink
}

func hasPDFSuffix(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".pdf")
}
