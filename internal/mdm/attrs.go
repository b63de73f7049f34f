package mdm

import "regexp"

// Quoting selects how attribute values are delimited in the content handed
// to the pass.
type Quoting int

const (
	// QuotePlain matches class="..." as found in stored HTML.
	QuotePlain Quoting = iota
	// QuoteEscaped matches class=\"...\" as found in slashed save data.
	QuoteEscaped
)

func (q Quoting) String() string {
	switch q {
	case QuotePlain:
		return "plain"
	case QuoteEscaped:
		return "escaped"
	}
	return "unknown"
}

var (
	// Group 1 is the attribute value. (?s) lets values span lines.
	reClassPlain   = regexp.MustCompile(`(?s)class="(.*?)"`)
	reSrcPlain     = regexp.MustCompile(`(?s)src="(.*?)"`)
	reClassEscaped = regexp.MustCompile(`(?s)class=\\"(.*?)\\"`)
	reSrcEscaped   = regexp.MustCompile(`(?s)src=\\"(.*?)\\"`)
)

func (q Quoting) classPattern() *regexp.Regexp {
	if q == QuoteEscaped {
		return reClassEscaped
	}
	return reClassPlain
}

func (q Quoting) srcPattern() *regexp.Regexp {
	if q == QuoteEscaped {
		return reSrcEscaped
	}
	return reSrcPlain
}

// ExtractClass returns the value of the first class attribute in markup.
func (q Quoting) ExtractClass(markup string) (string, bool) {
	return firstValue(q.classPattern(), markup)
}

// ExtractSrc returns the value of the first src attribute in markup.
func (q Quoting) ExtractSrc(markup string) (string, bool) {
	return firstValue(q.srcPattern(), markup)
}

func firstValue(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return "", false
	}
	return s[m[2]:m[3]], true
}

// valueEnd returns the offset just past the first attribute value, i.e. the
// position of its closing delimiter.
func valueEnd(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return 0, false
	}
	return m[3], true
}
