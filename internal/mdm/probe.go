package mdm

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ProbeResult is the outcome of a header-only reachability request.
type ProbeResult struct {
	Succeeded   bool
	StatusCode  int
	ContentType string
	Err         error
}

// IsImage reports whether the probe completed and the content type contains
// "image". The match is case-sensitive.
func (r ProbeResult) IsImage() bool {
	return r.Succeeded && strings.Contains(r.ContentType, "image")
}

// Prober checks whether a URL is reachable without transferring its body.
type Prober interface {
	Head(ctx context.Context, url string) ProbeResult
}

// NewProbeClient returns an HTTP client for reachability probes.
// Certificates are not verified and redirects are not followed: the first
// response is the one that counts.
func NewProbeClient(timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // G402: probed hosts may use self-signed certificates
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// HTTPProber issues HEAD requests, failing on any status >= 400.
type HTTPProber struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPProber builds a prober from cfg. A positive cfg.ProbeRate caps the
// number of requests per second across all goroutines using the prober.
func NewHTTPProber(cfg Config) *HTTPProber {
	p := &HTTPProber{client: NewProbeClient(cfg.ProbeTimeout)}
	if cfg.ProbeRate > 0 {
		burst := int(cfg.ProbeRate)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.ProbeRate), burst)
	}
	return p
}

// Head implements Prober.
func (p *HTTPProber) Head(ctx context.Context, url string) ProbeResult {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return ProbeResult{Err: fmt.Errorf("probe rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return ProbeResult{Err: fmt.Errorf("create request: %w", err)}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{Err: fmt.Errorf("HEAD: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	res := ProbeResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.StatusCode >= http.StatusBadRequest {
		res.Err = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
		return res
	}
	res.Succeeded = true
	return res
}

// CloseIdleConnections releases pooled connections held by the prober.
func (p *HTTPProber) CloseIdleConnections() {
	p.client.CloseIdleConnections()
}
