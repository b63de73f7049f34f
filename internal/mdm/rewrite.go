package mdm

import "strings"

// Rewriter applies the marker class and src fragment to a single element.
type Rewriter struct {
	quoting    Quoting
	marker     string
	idempotent bool
}

// NewRewriter returns a Rewriter configured from cfg.
func NewRewriter(cfg Config) *Rewriter {
	return &Rewriter{quoting: cfg.Quoting, marker: cfg.MarkerClass, idempotent: cfg.Idempotent}
}

// Rewrite returns markup with the marker class appended when live is false
// and "#<id>-<size>" appended to src when ref carries both tokens.
// Only the first class and src attributes are touched. Without a class
// attribute the marker is dropped rather than synthesised.
func (w *Rewriter) Rewrite(markup string, ref MediaRef, live bool) string {
	if !live {
		markup = w.appendMarker(markup)
	}
	if frag := ref.Fragment(); frag != "" {
		markup = w.appendFragment(markup, frag)
	}
	return markup
}

func (w *Rewriter) appendMarker(markup string) string {
	if w.idempotent {
		if class, ok := w.quoting.ExtractClass(markup); ok && hasClassToken(class, w.marker) {
			return markup
		}
	}
	end, ok := valueEnd(w.quoting.classPattern(), markup)
	if !ok {
		return markup
	}
	return markup[:end] + " " + w.marker + markup[end:]
}

func (w *Rewriter) appendFragment(markup, frag string) string {
	if w.idempotent {
		if src, ok := w.quoting.ExtractSrc(markup); ok && strings.HasSuffix(src, frag) {
			return markup
		}
	}
	end, ok := valueEnd(w.quoting.srcPattern(), markup)
	if !ok {
		return markup
	}
	return markup[:end] + frag + markup[end:]
}

func hasClassToken(class, token string) bool {
	for _, f := range strings.Fields(class) {
		if f == token {
			return true
		}
	}
	return false
}
