package mockhttp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
)

// Matcher is a predicate over a request body or header value. present is
// false when a header is absent; bodies are always present.
type Matcher interface {
	Match(value string, present bool) bool
	String() string
}

type matcherFunc struct {
	desc string
	fn   func(value string, present bool) bool
}

func (m matcherFunc) Match(value string, present bool) bool { return m.fn(value, present) }
func (m matcherFunc) String() string { return m.desc }

// Any matches every value, including an absent header.
func Any() Matcher {
	return matcherFunc{"any", func(string, bool) bool { return true }}
}

// Missing matches only an absent header.
func Missing() Matcher {
	return matcherFunc{"missing", func(_ string, present bool) bool { return !present }}
}

// Exact matches a value equal to s.
func Exact(s string) Matcher {
	return matcherFunc{fmt.Sprintf("exact(%q)", s), func(v string, present bool) bool {
		return present && v == s
	}}
}

// Regex matches a value containing a match of expr. It panics if expr does
// not compile.
func Regex(expr string) Matcher {
	re := regexp.MustCompile(expr)
	return matcherFunc{fmt.Sprintf("regex(%q)", expr), func(v string, present bool) bool {
		return present && re.MatchString(v)
	}}
}

// JSON matches a value that decodes to the same JSON document as v.
func JSON(v any) Matcher {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mockhttp.JSON: %v", err))
	}
	return JSONString(string(data))
}

// JSONString matches a value that decodes to the same JSON document as s.
// It panics if s is not valid JSON.
func JSONString(s string) Matcher {
	want := mustDecode(s)
	return matcherFunc{fmt.Sprintf("json(%s)", s), func(v string, present bool) bool {
		got, ok := decode(v)
		return present && ok && reflect.DeepEqual(got, want)
	}}
}

// PartialJSON matches a JSON value that contains every field of v.
func PartialJSON(v any) Matcher {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mockhttp.PartialJSON: %v", err))
	}
	return PartialJSONString(string(data))
}

// PartialJSONString matches a JSON value that contains every field of s.
// Objects may carry extra keys; arrays must have the same length.
func PartialJSONString(s string) Matcher {
	want := mustDecode(s)
	return matcherFunc{fmt.Sprintf("partial_json(%s)", s), func(v string, present bool) bool {
		got, ok := decode(v)
		return present && ok && contains(got, want)
	}}
}

// URLEncoded matches a form-encoded value in which key has value.
func URLEncoded(key, value string) Matcher {
	return matcherFunc{fmt.Sprintf("url_encoded(%q=%q)", key, value), func(v string, present bool) bool {
		if !present {
			return false
		}
		values, err := url.ParseQuery(v)
		if err != nil {
			return false
		}
		for _, got := range values[key] {
			if got == value {
				return true
			}
		}
		return false
	}}
}

// AllOf matches when every matcher matches.
func AllOf(ms ...Matcher) Matcher {
	return matcherFunc{"all_of(" + join(ms) + ")", func(v string, present bool) bool {
		for _, m := range ms {
			if !m.Match(v, present) {
				return false
			}
		}
		return true
	}}
}

// AnyOf matches when at least one matcher matches.
func AnyOf(ms ...Matcher) Matcher {
	return matcherFunc{"any_of(" + join(ms) + ")", func(v string, present bool) bool {
		for _, m := range ms {
			if m.Match(v, present) {
				return true
			}
		}
		return false
	}}
}

func join(ms []Matcher) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}

func decode(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

func mustDecode(s string) any {
	v, ok := decode(s)
	if !ok {
		panic(fmt.Sprintf("mockhttp: invalid JSON %q", s))
	}
	return v
}

// contains reports whether got includes everything in want.
func contains(got, want any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !contains(gv, wv) {
				return false
			}
		}
		return true
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !contains(g[i], w[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(got, want)
	}
}
