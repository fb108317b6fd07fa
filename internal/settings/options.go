// Package settings supplies the site-configured options object handed to the
// consent library on initialization.
package settings

import "time"

// DocumentKey is the top-level YAML key holding the consent library options.
const DocumentKey = "eu_cookie_consent"

// Options is the site-configured options object. Its Values are owned by the
// consent library's contract; nothing between the settings file and the
// library inspects or copies them.
type Options struct {
	Values   map[string]any
	Revision uint64
	Source   string
	LoadedAt time.Time
}

// Lookup returns a single option value. A nil receiver has no values.
func (o *Options) Lookup(key string) (any, bool) {
	if o == nil || o.Values == nil {
		return nil, false
	}
	v, ok := o.Values[key]
	return v, ok
}

// RevisionOf reports the revision of o, or 0 when no options are configured.
func RevisionOf(o *Options) uint64 {
	if o == nil {
		return 0
	}
	return o.Revision
}
