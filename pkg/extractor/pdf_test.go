package extractor

import "testing"

func TestIsPDF(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        bool
	}{
		{"application/pdf", "https://example.com/download?id=7", true},
		{"Application/PDF; charset=binary", "https://example.com/x", true},
		{"", "https://example.com/papers/state-of-go.PDF?v=2", true},
		{"text/html; charset=utf-8", "https://example.com/post", false},
		{"text/html", "https://example.com/pdf-tips", false},
	}
	for _, tt := range tests {
		if got := IsPDF(tt.contentType, tt.url); got != tt.want {
			t.Errorf("IsPDF(%q, %q) = %v, want %v", tt.contentType, tt.url, got, tt.want)
		}
	}
}

func TestTitleFromFileName(t *testing.T) {
	tests := map[string]string{
		"https://example.com/papers/state-of-go_2024.pdf":   "state of go 2024",
		"https://example.com/a/report.pdf?download=1":       "report",
		"https://example.com/whitepapers/pg--tuning---.pdf": "pg tuning",
	}
	for url, want := range tests {
		if got := titleFromFileName(url); got != want {
			t.Errorf("titleFromFileName(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestPDFText_Invalid(t *testing.T) {
	if _, err := PDFText(nil); err == nil {
		t.Error("expected error for empty content")
	}
	if _, err := PDFText([]byte("<html>not a pdf</html>")); err == nil {
		t.Error("expected error for non-PDF content")
	}
}
