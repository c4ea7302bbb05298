package extractor

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
)

var errEmptyPDFContent = errors.New("pdf content is empty")

// IsPDF reports whether a response is a PDF document, judging by content type
// and falling back to the URL extension.
func IsPDF(contentType, url string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.EqualFold(path.Ext(stripQuery(url)), ".pdf")
}

// PDFText extracts the plain text of an in-memory PDF document.
func PDFText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errEmptyPDFContent
	}

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	textReader, err := doc.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", err
	}
	return collapseSpace(buf.String()), nil
}

// ExtractPDFPage builds a Page from a PDF served at url. PDFs carry no reliable
// title, so the file name stands in for it.
func ExtractPDFPage(data []byte, url string, maxLeadIn int) (Page, error) {
	text, err := PDFText(data)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Title:  titleFromFileName(url),
		Text:   text,
		LeadIn: Truncate(text, maxLeadIn),
	}, nil
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

// titleFromFileName turns ".../state-of-go_2024.pdf" into "state of go 2024".
func titleFromFileName(url string) string {
	name := path.Base(stripQuery(url))
	name = strings.TrimSuffix(name, path.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(name)
	name = collapseSpace(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
