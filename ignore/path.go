package ignore

import (
	"regexp"
	"strings"
)

type pathRule struct {
	literal string
	prefix  bool
	all     bool
	re      *regexp.Regexp
}

func (r pathRule) match(path string) bool {
	switch {
	case r.re != nil:
		return r.re.MatchString(path)
	case r.all:
		return true
	case r.prefix:
		return path == r.literal || strings.HasPrefix(path, r.literal+"/")
	default:
		return path == r.literal
	}
}

// compilePath builds a rule from a configured pattern. On a bad regex the
// returned rule compares the trimmed pattern literally.
func compilePath(pattern string) (pathRule, error) {
	if body, flags, ok := delimited(pattern); ok {
		re, err := compileDelimited(body, flags)
		if err == nil {
			return pathRule{re: re}, nil
		}
		return pathRule{literal: normalizePath(pattern)}, err
	}

	p := normalizePath(pattern)
	switch {
	case p == "*":
		return pathRule{all: true}, nil
	case strings.HasSuffix(p, "/*"):
		return pathRule{literal: strings.TrimSuffix(p, "/*"), prefix: true}, nil
	default:
		return pathRule{literal: p}, nil
	}
}

func normalizePath(p string) string {
	return strings.Trim(p, "/")
}

// MatchPath reports whether path matches a single ignore pattern.
// Both sides are trimmed of leading and trailing slashes; "foo/*" matches
// "foo" and anything below it but never "foobar".
func MatchPath(path, pattern string) bool {
	r, _ := compilePath(pattern)
	return r.match(normalizePath(path))
}

// ShouldIgnorePath reports whether any path rule matches. Rules are
// evaluated in configured order and the first match wins.
func (f *Filter) ShouldIgnorePath(path string) bool {
	p := normalizePath(path)
	for _, r := range f.paths {
		if r.match(p) {
			return true
		}
	}
	return false
}
