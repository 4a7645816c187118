package gateway

import (
	"regexp"
	"strings"
)

// FallbackFunc builds a demo payload. params holds the numeric path
// segments captured by the pattern, in order.
type FallbackFunc func(req Request, params []string) (any, error)

type fallbackRoute struct {
	method  string
	pattern string
	re      *regexp.Regexp
	build   FallbackFunc
}

// Fallbacks maps endpoint patterns to demo payloads. A pattern is a path
// relative to the API base where "{name}" matches one numeric segment.
// Routes are tried in registration order.
type Fallbacks struct {
	routes []fallbackRoute
}

func NewFallbacks() *Fallbacks { return &Fallbacks{} }

var placeholder = regexp.MustCompile(`^\{[a-zA-Z_]+\}$`)

// Handle registers fn for pattern. An empty method matches any method.
func (f *Fallbacks) Handle(method, pattern string, fn FallbackFunc) *Fallbacks {
	pattern = strings.Trim(pattern, "/")
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if placeholder.MatchString(seg) {
			segments[i] = `(\d+)`
		} else {
			segments[i] = regexp.QuoteMeta(seg)
		}
	}
	expr := "^" + strings.Join(segments, "/") + "$"
	f.routes = append(f.routes, fallbackRoute{
		method:  strings.ToUpper(method),
		pattern: pattern,
		re:      regexp.MustCompile(expr),
		build:   fn,
	})
	return f
}

// Match finds the first route for method and path.
func (f *Fallbacks) Match(method, path string) (pattern string, fn FallbackFunc, params []string, ok bool) {
	if f == nil {
		return "", nil, nil, false
	}
	path = normalizePath(path)
	method = strings.ToUpper(method)
	for _, r := range f.routes {
		if r.method != "" && r.method != method {
			continue
		}
		m := r.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		return r.pattern, r.build, m[1:], true
	}
	return "", nil, nil, false
}

// Patterns lists registered patterns, mostly for diagnostics.
func (f *Fallbacks) Patterns() []string {
	out := make([]string, 0, len(f.routes))
	for _, r := range f.routes {
		if r.method != "" {
			out = append(out, r.method+" "+r.pattern)
			continue
		}
		out = append(out, r.pattern)
	}
	return out
}

func normalizePath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return strings.Trim(p, "/")
}
