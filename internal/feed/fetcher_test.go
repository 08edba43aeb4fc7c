package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchSuccess(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte("<rss></rss>"))
	}))
	defer srv.Close()

	f := NewFetcher(&FetcherConfig{})
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(body) != "<rss></rss>" {
		t.Errorf("body = %q", body)
	}
	if gotUA != "Mozilla/5.0 (compatible; RSS-Bot/1.0)" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAccept != acceptHeader {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestFetchCustomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	f := NewFetcher(&FetcherConfig{UserAgent: "feedsync-test/1.0"})
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if gotUA != "feedsync-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(&FetcherConfig{})
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %T, want *TransportError", err)
	}
	if terr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", terr.Status)
	}
}

func TestFetchNetworkError(t *testing.T) {
	f := NewFetcher(&FetcherConfig{})
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/feed.xml")
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %T, want *TransportError", err)
	}
	if terr.Status != 0 {
		t.Errorf("status = %d, want 0 for network failure", terr.Status)
	}
}

func TestTruncateReason(t *testing.T) {
	long := make([]byte, maxReasonLen*2)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateReason(string(long))
	if len(got) != maxReasonLen {
		t.Errorf("len = %d, want %d", len(got), maxReasonLen)
	}
	if truncateReason("short") != "short" {
		t.Error("short reason must pass through unchanged")
	}
}
