package mdm

import (
	"errors"
	"fmt"
	"time"

	sanitize "github.com/mrz1836/go-sanitize"
)

// Default token conventions of the host CMS.
const (
	DefaultIDPrefix     = "wp-image-"
	DefaultSizePrefix   = "size-"
	DefaultMarkerClass  = "deleted"
	DefaultContentField = "post_content"
)

// Config holds all runtime configuration for a marking pass.
type Config struct {
	Quoting      Quoting
	IDPrefix     string
	SizePrefix   string
	MarkerClass  string
	ContentField string // record field rewritten by FilterPostData
	Threads      int    // <= 1 resolves verdicts sequentially
	ProbeTimeout time.Duration
	ProbeRate    float64 // HEAD probes per second, 0 = unlimited
	Idempotent   bool    // skip marker/fragment already present
}

// DefaultConfig returns the configuration matching the host's stock
// behaviour: plain quotes, sequential probing, no idempotence guard.
func DefaultConfig() Config {
	return Config{
		Quoting:      QuotePlain,
		IDPrefix:     DefaultIDPrefix,
		SizePrefix:   DefaultSizePrefix,
		MarkerClass:  DefaultMarkerClass,
		ContentField: DefaultContentField,
		Threads:      1,
		ProbeTimeout: 30 * time.Second,
	}
}

// Validate reports the first invalid field.
// Marker and prefixes must be plain class fragments ([a-zA-Z0-9_-]) since
// they are spliced into class lists and regular expressions verbatim.
func (c Config) Validate() error {
	if c.Quoting != QuotePlain && c.Quoting != QuoteEscaped {
		return fmt.Errorf("unknown quoting %d", c.Quoting)
	}
	for _, f := range []struct{ name, val string }{
		{"marker class", c.MarkerClass},
		{"id prefix", c.IDPrefix},
		{"size prefix", c.SizePrefix},
	} {
		if f.val == "" {
			return fmt.Errorf("%s must not be empty", f.name)
		}
		if sanitize.PathName(f.val) != f.val {
			return fmt.Errorf("%s %q contains characters outside [a-zA-Z0-9_-]", f.name, f.val)
		}
	}
	if c.ContentField == "" {
		return errors.New("content field must not be empty")
	}
	if c.ProbeTimeout < 0 {
		return errors.New("probe timeout must not be negative")
	}
	if c.ProbeRate < 0 {
		return errors.New("probe rate must not be negative")
	}
	return nil
}
