package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_SetsProfileHeaders(t *testing.T) {
	tests := []struct {
		clientType ClientType
		wantUA     string
	}{
		{CloudflareClient, "curl/8.7.1"},
		{BrowserClient, "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"},
	}

	for _, tt := range tests {
		t.Run(string(tt.clientType), func(t *testing.T) {
			var gotUA string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUA = r.Header.Get("User-Agent")
				w.Write([]byte("ok"))
			}))
			defer server.Close()

			c := NewClient(tt.clientType, 0)
			body, err := c.FetchString(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("FetchString: %v", err)
			}
			if body != "ok" {
				t.Errorf("body = %q, want ok", body)
			}
			if gotUA != tt.wantUA {
				t.Errorf("User-Agent = %q, want %q", gotUA, tt.wantUA)
			}
		})
	}
}

func TestClient_UnderlyingClientKeepsHeaders(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	resp, err := NewClient(CloudflareClient, 0).Client().Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if gotUA != "curl/8.7.1" {
		t.Errorf("User-Agent = %q, want curl/8.7.1", gotUA)
	}
}

func TestFetchString_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := NewClient(DefaultClient, 0).FetchString(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestParseClientType(t *testing.T) {
	if got := ParseClientType("browser"); got != BrowserClient {
		t.Errorf("ParseClientType(browser) = %q", got)
	}
	if got := ParseClientType("nonsense"); got != DefaultClient {
		t.Errorf("ParseClientType(nonsense) = %q", got)
	}
}
