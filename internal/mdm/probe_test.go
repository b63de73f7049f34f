package mdm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newImageServer(t *testing.T, tls bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpegdata"))
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	})
	mux.HandleFunc("/moved.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/a.jpg", http.StatusFound)
	})
	mux.HandleFunc("/gone.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusNotFound)
	})
	var srv *httptest.Server
	if tls {
		srv = httptest.NewTLSServer(mux)
	} else {
		srv = httptest.NewServer(mux)
	}
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProber(t *testing.T) {
	srv := newImageServer(t, false)
	p := NewHTTPProber(DefaultConfig())
	ctx := context.Background()

	cases := []struct {
		path      string
		succeeded bool
		image     bool
	}{
		{"/a.jpg", true, true},
		{"/page.html", true, false},
		// Redirects are not followed; the 302 itself is not an image.
		{"/moved.jpg", true, false},
		// Error statuses fail even with an image content type.
		{"/gone.jpg", false, false},
		{"/missing.jpg", false, false},
	}
	for _, tc := range cases {
		res := p.Head(ctx, srv.URL+tc.path)
		if res.Succeeded != tc.succeeded || res.IsImage() != tc.image {
			t.Errorf("Head(%s) = %+v\n  want succeeded=%v image=%v", tc.path, res, tc.succeeded, tc.image)
		}
	}
}

func TestHTTPProberSelfSignedTLS(t *testing.T) {
	srv := newImageServer(t, true)
	res := NewHTTPProber(DefaultConfig()).Head(context.Background(), srv.URL+"/a.jpg")
	if !res.IsImage() {
		t.Errorf("self-signed host should be probed without verification, got %+v", res)
	}
}

func TestHTTPProberTransportError(t *testing.T) {
	srv := newImageServer(t, false)
	url := srv.URL + "/a.jpg"
	srv.Close()

	res := NewHTTPProber(DefaultConfig()).Head(context.Background(), url)
	if res.Succeeded || res.Err == nil {
		t.Errorf("expected transport failure, got %+v", res)
	}
}

func TestHTTPProberTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	cfg := DefaultConfig()
	cfg.ProbeTimeout = 50 * time.Millisecond
	res := NewHTTPProber(cfg).Head(context.Background(), srv.URL+"/slow.jpg")
	if res.Succeeded || res.Err == nil {
		t.Errorf("expected timeout, got %+v", res)
	}
}

func TestHTTPProberRateLimiterCancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProbeRate = 0.001
	p := NewHTTPProber(cfg)
	srv := newImageServer(t, false)

	// The first request consumes the single burst token.
	if res := p.Head(context.Background(), srv.URL+"/a.jpg"); !res.IsImage() {
		t.Fatalf("first probe = %+v", res)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if res := p.Head(ctx, srv.URL+"/a.jpg"); res.Err == nil {
		t.Errorf("expected limiter error, got %+v", res)
	}
}

func TestProbeResultIsImage(t *testing.T) {
	cases := []struct {
		res  ProbeResult
		want bool
	}{
		{ProbeResult{Succeeded: true, ContentType: "image/png"}, true},
		{ProbeResult{Succeeded: true, ContentType: "image/webp; charset=binary"}, true},
		{ProbeResult{Succeeded: true, ContentType: "Image/WebP"}, false},
		{ProbeResult{Succeeded: true, ContentType: "IMAGE/PNG"}, false},
		{ProbeResult{Succeeded: true, ContentType: "application/octet-stream"}, false},
		{ProbeResult{Succeeded: true}, false},
		{ProbeResult{ContentType: "image/png"}, false},
	}
	for _, tc := range cases {
		if got := tc.res.IsImage(); got != tc.want {
			t.Errorf("%+v.IsImage() = %v, want %v", tc.res, got, tc.want)
		}
	}
}
