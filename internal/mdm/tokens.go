package mdm

import (
	"regexp"
	"strconv"
)

// MediaRef is the logical media reference encoded in an image's class list.
// Token is the id digit run exactly as written; ID is its numeric value for
// registry lookups, 0 when the run does not fit an int64. An empty Token or
// Size means the token was not found.
type MediaRef struct {
	ID    int64
	Token string
	Size  string
}

// HasID reports whether a media id token was found.
func (r MediaRef) HasID() bool { return r.Token != "" }

// Fragment returns the "#<id>-<size>" src suffix, or "" unless both tokens
// are present. The id is emitted as written, leading zeros included.
func (r MediaRef) Fragment() string {
	if !r.HasID() || r.Size == "" {
		return ""
	}
	return "#" + r.Token + "-" + r.Size
}

// TokenParser pulls media id and size tokens out of a class attribute value.
type TokenParser struct {
	reID   *regexp.Regexp
	reSize *regexp.Regexp
}

// NewTokenParser builds a parser for "<idPrefix><digits>" and
// "<sizePrefix><word>" tokens.
func NewTokenParser(idPrefix, sizePrefix string) *TokenParser {
	return &TokenParser{
		reID:   regexp.MustCompile(regexp.QuoteMeta(idPrefix) + `(\d+)`),
		reSize: regexp.MustCompile(regexp.QuoteMeta(sizePrefix) + `(\w+)`),
	}
}

// ParseID returns the first digit run following the id prefix and its
// value. A bare "0" is not a record and reads as absent. Runs too large for
// an int64 keep their token with id 0, so they skip the registry.
func (p *TokenParser) ParseID(class string) (token string, id int64) {
	v, ok := firstValue(p.reID, class)
	if !ok || v == "0" {
		return "", 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return v, 0
	}
	return v, id
}

// ParseSize returns the first word run following the size prefix.
func (p *TokenParser) ParseSize(class string) string {
	v, _ := firstValue(p.reSize, class)
	return v
}

// Parse extracts both tokens.
func (p *TokenParser) Parse(class string) MediaRef {
	token, id := p.ParseID(class)
	return MediaRef{ID: id, Token: token, Size: p.ParseSize(class)}
}
