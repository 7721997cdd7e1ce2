package pdfcheck

import (
	"bytes"
	"fmt"
	"sync"

	"pdf-summarizer/internal/domain"
	"pdf-summarizer/internal/domain/ports/adapter"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var _ adapter.PDFInspector = (*Inspector)(nil)

var disableConfigDir sync.Once

// Inspector validates uploads with pdfcpu before they leave the machine.
type Inspector struct {
	conf *model.Configuration
}

func NewInspector() *Inspector {
	// pdfcpu would otherwise write its config dir under the user's home.
	disableConfigDir.Do(pdfapi.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// Inspect returns the number of pages in data.
func (i *Inspector) Inspect(data []byte) (int, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, domain.ErrNotPDF
	}
	if err := pdfapi.Validate(bytes.NewReader(data), i.conf); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrNotPDF, err)
	}
	n, err := pdfapi.PageCount(bytes.NewReader(data), i.conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrNotPDF, err)
	}
	return n, nil
}
