package restorer

import "regexp"

// RewriteRule maps a looked-up absolute path onto the path borg stored it
// under, e.g. a bind mount back to its origin.
type RewriteRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// RewritePath applies the configured rules to an absolute lookup path. The
// first matching rule wins; a path matching no rule is returned unchanged.
func (r *Restorer) RewritePath(path string) string {
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(path) {
			rewritten := rule.Pattern.ReplaceAllString(path, rule.Replacement)
			r.logger.Debug().
				Str("path", path).
				Str("rewritten", rewritten).
				Str("pattern", rule.Pattern.String()).
				Msg("rewrote lookup path")
			return rewritten
		}
	}
	return path
}
