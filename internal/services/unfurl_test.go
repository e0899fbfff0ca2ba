package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestUnfurlReadsOpenGraph(t *testing.T) {
	// 模拟网页
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
<title>Fallback</title>
<meta property="og:title" content="A <b>bold</b> title">
<meta property="og:image" content="/cover.png">
</head><body><p>hello</p></body></html>`)
	}))
	defer server.Close()

	s := NewUnfurlService(2*time.Second, zap.NewNop())
	preview := s.Unfurl(context.Background(), server.URL+"/article")

	if preview.Title != "A bold title" {
		t.Errorf("title = %q", preview.Title)
	}
	if preview.ThumbnailURL != server.URL+"/cover.png" {
		t.Errorf("thumbnail = %q, want %q", preview.ThumbnailURL, server.URL+"/cover.png")
	}
	if preview.Domain != "127.0.0.1" {
		t.Errorf("domain = %q", preview.Domain)
	}
}

func TestUnfurlFallsBackToTitleTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title> Plain page </title></head><body></body></html>`)
	}))
	defer server.Close()

	s := NewUnfurlService(2*time.Second, zap.NewNop())
	if got := s.Title(context.Background(), server.URL); got != "Plain page" {
		t.Errorf("Title = %q, want %q", got, "Plain page")
	}
}

func TestUnfurlTimeoutKeepsDomain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	s := NewUnfurlService(50*time.Millisecond, zap.NewNop())
	start := time.Now()
	preview := s.Unfurl(context.Background(), server.URL+"/slow")
	if time.Since(start) > time.Second {
		t.Fatalf("unfurl did not give up after its timeout")
	}
	if preview.Title != "" || preview.ThumbnailURL != "" {
		t.Errorf("expected empty enrichment, got %+v", preview)
	}
	if preview.Domain != "127.0.0.1" {
		t.Errorf("domain = %q", preview.Domain)
	}
}

func TestUnfurlFailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	s := NewUnfurlService(time.Second, zap.NewNop())
	preview := s.Unfurl(context.Background(), server.URL)
	if preview.Title != "" || preview.Domain != "127.0.0.1" {
		t.Errorf("unexpected preview %+v", preview)
	}
}

func TestUnfurlImageLinkIsItsOwnThumbnail(t *testing.T) {
	s := NewUnfurlService(time.Second, zap.NewNop())
	link := "https://www.example.com/pics/cat.JPG"
	preview := s.Unfurl(context.Background(), link)
	if preview.ThumbnailURL != link {
		t.Errorf("thumbnail = %q", preview.ThumbnailURL)
	}
	if preview.Domain != "example.com" {
		t.Errorf("domain = %q", preview.Domain)
	}
	if s.Title(context.Background(), link) != "" {
		t.Error("image links have no title")
	}
}

func TestUnfurlInvalidLink(t *testing.T) {
	s := NewUnfurlService(time.Second, zap.NewNop())
	for _, link := range []string{"", "ftp://example.com/file", "not a url"} {
		if got := s.Unfurl(context.Background(), link); got != (LinkPreview{}) {
			t.Errorf("Unfurl(%q) = %+v, want empty", link, got)
		}
	}
}

func TestUnfurlCachesResult(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, `<html><head><title>cached</title></head></html>`)
	}))
	defer server.Close()

	s := NewUnfurlService(time.Second, zap.NewNop())
	for i := 0; i < 3; i++ {
		if got := s.Unfurl(context.Background(), server.URL).Title; !strings.EqualFold(got, "cached") {
			t.Fatalf("title = %q", got)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}
