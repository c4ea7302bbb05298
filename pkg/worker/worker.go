package worker

import (
	"context"
	"fmt"

	"newsblog/pkg/extractor"
	"newsblog/pkg/httpclient"
)

// Worker fetches article pages and extracts their readable content
type Worker struct {
	client       *httpclient.HTTPClient
	leadInLength int
}

// NewWorker creates a new worker. A nil client uses default headers.
func NewWorker(client *httpclient.HTTPClient, leadInLength int) *Worker {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultClient, 0)
	}
	if leadInLength <= 0 {
		leadInLength = extractor.DefaultLeadInLength
	}
	return &Worker{client: client, leadInLength: leadInLength}
}

// FetchPage fetches url and extracts title, text and lead-in. PDF documents
// are read with the PDF extractor, everything else as HTML.
func (w *Worker) FetchPage(ctx context.Context, url string) (extractor.Page, error) {
	body, contentType, err := w.client.Fetch(ctx, url)
	if err != nil {
		return extractor.Page{}, fmt.Errorf("failed to fetch page: %w", err)
	}

	var page extractor.Page
	if extractor.IsPDF(contentType, url) {
		page, err = extractor.ExtractPDFPage(body, url, w.leadInLength)
	} else {
		page, err = extractor.ExtractPage(string(body), w.leadInLength)
	}
	if err != nil {
		return extractor.Page{}, err
	}
	if page.Title == "" {
		return extractor.Page{}, fmt.Errorf("failed to extract title from %s", url)
	}
	return page, nil
}
