package mdm

import (
	"context"
	"sync"
)

// stubProber answers probes from a fixed table and counts calls.
// Unknown URLs fail like a connection error.
type stubProber struct {
	mu      sync.Mutex
	results map[string]ProbeResult
	calls   []string
}

func newStubProber() *stubProber {
	return &stubProber{results: make(map[string]ProbeResult)}
}

func (p *stubProber) image(url string) *stubProber {
	p.results[url] = ProbeResult{Succeeded: true, StatusCode: 200, ContentType: "image/jpeg"}
	return p
}

func (p *stubProber) Head(_ context.Context, url string) ProbeResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, url)
	if r, ok := p.results[url]; ok {
		return r
	}
	return ProbeResult{Err: context.DeadlineExceeded}
}

func (p *stubProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// failingRegistry returns err for every lookup.
type failingRegistry struct{ err error }

func (r failingRegistry) Lookup(context.Context, int64) (Entry, error) {
	return Entry{}, r.err
}

func testRegistry(entries map[int64]string) *MapRegistry {
	reg := NewMapRegistry()
	for id, kind := range entries {
		reg.Set(id, kind)
	}
	return reg
}

// countingRegistry counts lookups. Not safe for parallel passes.
type countingRegistry struct {
	*MapRegistry
	lookups int
}

func (r *countingRegistry) Lookup(ctx context.Context, id int64) (Entry, error) {
	r.lookups++
	return r.MapRegistry.Lookup(ctx, id)
}
