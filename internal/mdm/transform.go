package mdm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

// reImgTag matches one <img ...> tag, shortest first. Tag-local on purpose:
// nested or malformed markup is not interpreted.
var reImgTag = regexp.MustCompile(`(?s)<img.*?>`)

// Transformer runs the marking pass over content blobs.
// It holds no per-call state and may be used concurrently.
type Transformer struct {
	cfg      Config
	tokens   *TokenParser
	resolver *Resolver
	rewriter *Rewriter
	metrics  *Metrics
	log      *slog.Logger
}

// Option customises a Transformer.
type Option func(*Transformer)

// WithMetrics records pass counters in m.
func WithMetrics(m *Metrics) Option {
	return func(t *Transformer) { t.metrics = m }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) { t.log = l }
}

// NewTransformer validates cfg and wires the pass to its collaborators.
func NewTransformer(cfg Config, registry Registry, prober Prober, opts ...Option) (*Transformer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return newTransformer(cfg, registry, prober, opts...), nil
}

func newTransformer(cfg Config, registry Registry, prober Prober, opts ...Option) *Transformer {
	t := &Transformer{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	t.tokens = NewTokenParser(cfg.IDPrefix, cfg.SizePrefix)
	t.resolver = NewResolver(registry, prober, t.metrics, t.log)
	t.rewriter = NewRewriter(cfg)
	return t
}

// Transform marks image elements in content using the default
// configuration and the given collaborators.
func Transform(ctx context.Context, content string, registry Registry, prober Prober) string {
	return newTransformer(DefaultConfig(), registry, prober).Transform(ctx, content)
}

// Transform returns content with every <img> element rewritten. Text
// outside the matched tags is copied unchanged and element order is kept.
// The pass never fails: unresolved media is simply marked.
func (t *Transformer) Transform(ctx context.Context, content string) string {
	spans := reImgTag.FindAllStringIndex(content, -1)
	if len(spans) == 0 {
		return content
	}

	out := make([]string, len(spans))
	if t.cfg.Threads <= 1 || len(spans) == 1 {
		for i, sp := range spans {
			out[i] = t.element(ctx, content[sp[0]:sp[1]])
		}
	} else {
		t.parallel(ctx, content, spans, out)
	}

	var b strings.Builder
	b.Grow(len(content) + len(spans)*16)
	prev := 0
	for i, sp := range spans {
		b.WriteString(content[prev:sp[0]])
		b.WriteString(out[i])
		prev = sp[1]
	}
	b.WriteString(content[prev:])
	return b.String()
}

// parallel resolves elements on a bounded pool, writing each result to its
// own slot in out.
func (t *Transformer) parallel(ctx context.Context, content string, spans [][]int, out []string) {
	pool, err := ants.NewPool(min(t.cfg.Threads, len(spans)))
	if err != nil {
		t.log.Warn("worker pool unavailable, processing sequentially", "error", err)
		for i, sp := range spans {
			out[i] = t.element(ctx, content[sp[0]:sp[1]])
		}
		return
	}
	defer pool.Release()

	var g errgroup.Group
	for i, sp := range spans {
		markup := content[sp[0]:sp[1]]
		g.Go(func() error {
			done := make(chan struct{})
			if err := pool.Submit(func() {
				defer close(done)
				out[i] = t.element(ctx, markup)
			}); err != nil {
				t.log.Debug("submit failed, processing inline", "index", i, "error", err)
				out[i] = t.element(ctx, markup)
				return nil
			}
			<-done
			return nil
		})
	}
	_ = g.Wait()
}

// element processes one matched <img> tag.
func (t *Transformer) element(ctx context.Context, markup string) string {
	class, ok := t.cfg.Quoting.ExtractClass(markup)
	if !ok {
		// Nothing could change: no marker target and no media id.
		t.metrics.image("skipped")
		return markup
	}
	ref := t.tokens.Parse(class)
	src, _ := t.cfg.Quoting.ExtractSrc(markup)

	live := t.resolver.IsLive(ctx, ref.ID, src)
	if live {
		t.metrics.image("live")
	} else {
		t.metrics.image("deleted")
		t.log.Debug("marking image", "media_id", ref.ID, "src", src)
	}
	return t.rewriter.Rewrite(markup, ref, live)
}
