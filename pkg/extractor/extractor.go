package extractor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// DefaultLeadInLength is the lead-in size used by the importer.
const DefaultLeadInLength = 300

// Page is the readable part of an article page.
type Page struct {
	Title  string
	Text   string
	LeadIn string
}

// ExtractText extracts the main article text from HTML content
func ExtractText(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	return strings.TrimSpace(article.TextContent), nil
}

// ExtractTitle extracts the article title from HTML content, falling back to
// the first <h1> and then <title> when readability finds none.
func ExtractTitle(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	doc, qerr := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if qerr != nil {
		return "", fmt.Errorf("failed to extract title: %w", qerr)
	}
	for _, sel := range []string{"h1", "title"} {
		if title := strings.TrimSpace(doc.Find(sel).First().Text()); title != "" {
			return title, nil
		}
	}
	return "", fmt.Errorf("title not found in HTML")
}

// ExtractPage runs readability once and derives title, text and a lead-in of at most maxLeadIn runes.
func ExtractPage(htmlContent string, maxLeadIn int) (Page, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to extract page: %w", err)
	}

	page := Page{
		Title: strings.TrimSpace(article.Title),
		Text:  strings.TrimSpace(article.TextContent),
	}
	if page.Title == "" {
		if title, err := ExtractTitle(htmlContent); err == nil {
			page.Title = title
		}
	}

	page.LeadIn = LeadIn(article.Content, maxLeadIn)
	if page.LeadIn == "" {
		page.LeadIn = Truncate(page.Text, maxLeadIn)
	}
	return page, nil
}

// LeadIn returns the first non-empty paragraph of an HTML fragment as plain
// text, cut to maxLen runes. Fragments without <p> use their whole text.
func LeadIn(htmlFragment string, maxLen int) string {
	if strings.TrimSpace(htmlFragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlFragment))
	if err != nil {
		return ""
	}

	var lead string
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		lead = collapseSpace(s.Text())
		return lead == ""
	})
	if lead == "" {
		lead = collapseSpace(doc.Text())
	}
	return Truncate(lead, maxLen)
}

// PlainText strips markup from an HTML fragment.
func PlainText(htmlFragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlFragment))
	if err != nil {
		return collapseSpace(htmlFragment)
	}
	return collapseSpace(doc.Text())
}

// Truncate cuts s to at most maxLen runes, preferring a word boundary and
// marking the cut with an ellipsis. maxLen <= 0 disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxLen])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
