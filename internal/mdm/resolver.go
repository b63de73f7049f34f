package mdm

import (
	"context"
	"log/slog"
	"time"
)

// Resolver decides whether referenced media still exists.
type Resolver struct {
	registry Registry
	prober   Prober
	metrics  *Metrics
	log      *slog.Logger
}

// NewResolver returns a Resolver. Either collaborator may be nil: a nil
// registry never confirms media, a nil prober never reaches it.
func NewResolver(registry Registry, prober Prober, metrics *Metrics, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{registry: registry, prober: prober, metrics: metrics, log: log}
}

// IsLive reports whether media id (0 = unknown) or the image at src is live.
// A registry attachment short-circuits the network probe. Lookup, URL and
// transport failures all count as "not live" and are only logged.
func (r *Resolver) IsLive(ctx context.Context, id int64, src string) bool {
	if id > 0 && r.registry != nil {
		entry, err := r.registry.Lookup(ctx, id)
		switch {
		case err != nil:
			r.log.Debug("registry miss", "media_id", id, "error", err)
		case entry.IsAttachment():
			r.metrics.verdict("registry")
			return true
		default:
			r.log.Debug("registry record is not an attachment", "media_id", id, "kind", entry.Kind)
		}
	}

	r.metrics.verdict("probe")
	if r.prober == nil {
		return false
	}
	target, err := NormalizeProbeURL(src)
	if err != nil {
		r.log.Debug("unprobeable src", "src", src, "error", err)
		return false
	}

	start := time.Now()
	res := r.prober.Head(ctx, target)
	r.metrics.probe(time.Since(start))

	if res.Err != nil {
		r.log.Debug("probe failed", "url", target, "status", res.StatusCode, "error", res.Err)
		return false
	}
	if !res.IsImage() {
		r.log.Debug("probe returned non-image", "url", target, "content_type", res.ContentType)
		return false
	}
	return true
}
