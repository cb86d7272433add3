package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	mimePDF = "application/pdf"

	// sampledPages bounds how many pages are scanned for a text layer.
	sampledPages = 3
)

var (
	ErrNotPDF     = errors.New("not a pdf document")
	ErrUnreadable = errors.New("unreadable pdf document")
)

// PDFInfo summarizes an uploaded report.
type PDFInfo struct {
	MimeType string
	Pages    int
	// TextChars counts characters found on the sampled pages. Zero usually
	// means a scanned report without a text layer.
	TextChars int
}

// HasText reports whether the sampled pages carried any text.
func (i PDFInfo) HasText() bool { return i.TextChars > 0 }

// InspectPDF validates data as a PDF and reads its page count.
func InspectPDF(data []byte) (info PDFInfo, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return PDFInfo{}, ErrNotPDF
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			info = PDFInfo{}
			err = fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFInfo{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return PDFInfo{}, fmt.Errorf("%w: no pages", ErrUnreadable)
	}

	info = PDFInfo{MimeType: mimePDF, Pages: pages}
	for i := 1; i <= pages && i <= sampledPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		info.TextChars += len(strings.TrimSpace(text))
	}
	return info, nil
}
