package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigman78/mdm/internal/mdm"
)

// upperPass is a stand-in for the marking pass.
type upperPass struct{}

func (upperPass) Transform(_ context.Context, content string) string {
	return strings.ToUpper(content)
}

func (upperPass) FilterPostData(_ context.Context, data []byte) ([]byte, error) {
	if !json.Valid(data) {
		return nil, errors.New("bad json")
	}
	return append([]byte(`{"filtered":true,"in":`), append(data, '}')...), nil
}

func newTestRouter(t *testing.T, pass Pass) (http.Handler, *prometheus.Registry) {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	return NewRouter(NewHandler(pass, log), reg, reg, log), reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, upperPass{})
	rec := do(t, h, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestTransformEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, upperPass{})

	rec := do(t, h, http.MethodPost, "/api/transform", `{"content":"<img>"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp TransformResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "<IMG>" {
		t.Errorf("content = %q", resp.Content)
	}

	for _, body := range []string{`not json`, `{}`, `{"content": 5}`} {
		if rec := do(t, h, http.MethodPost, "/api/transform", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/api/transform", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/transform: status %d, want 405", rec.Code)
	}
}

func TestFilterPostEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, upperPass{})

	rec := do(t, h, http.MethodPost, "/api/filter-post", `{"post_content":"x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != `{"filtered":true,"in":{"post_content":"x"}}` {
		t.Errorf("body = %s", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	if rec := do(t, h, http.MethodPost, "/api/filter-post", `{"post_content":`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed record: status %d, want 400", rec.Code)
	}
}

// The real pass behind the service, with no registry and no prober: every
// classed image is marked.
func TestFilterPostWithTransformer(t *testing.T) {
	tr, err := mdm.NewTransformer(mdm.DefaultConfig(), mdm.NewMapRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := newTestRouter(t, tr)

	rec := do(t, h, http.MethodPost, "/api/filter-post", `{"post_content":"<img class=\"wp-image-5 size-medium\" src=\"http://x/a.jpg\">"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	want := `{"post_content":"<img class=\"wp-image-5 size-medium deleted\" src=\"http://x/a.jpg#5-medium\">"}`
	if got := rec.Body.String(); got != want {
		t.Errorf("\n  got  %s\n  want %s", got, want)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, upperPass{})
	_ = do(t, h, http.MethodGet, "/api/health", "")
	_ = do(t, h, http.MethodGet, "/no/such/path", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`http_requests_total{method="GET",path="GET /api/health",status="200"} 1`,
		`http_requests_total{method="GET",path="unmatched",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s\n  got: %s", want, body)
		}
	}
}
