// Package form turns submitted form bodies into flat results and hands
// them to a Dispatcher.
package form

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
)

// Pair is one name/value pair of a submitted form, in document order.
type Pair struct {
	Name  string
	Value string
}

// ParsePairs decodes an application/x-www-form-urlencoded body keeping
// the order of the pairs.
func ParsePairs(body string) ([]Pair, error) {
	var pairs []Pair
	for _, part := range strings.Split(body, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, fmt.Errorf("field name %q: %w", name, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", n, err)
		}
		pairs = append(pairs, Pair{Name: n, Value: v})
	}
	return pairs, nil
}

// PairsFromValues flattens already parsed form values, ordered by name.
// The values of one name keep their submission order.
func PairsFromValues(values url.Values) []Pair {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	var pairs []Pair
	for _, name := range names {
		for _, v := range values[name] {
			pairs = append(pairs, Pair{Name: name, Value: v})
		}
	}
	return pairs
}

// Result maps a field name to a string, or to a []string for fields whose
// control is multi-valued.
type Result map[string]any

// Collect folds pairs into a Result. Values of multi-valued fields are
// accumulated in order; other fields keep the last value. Names in skip
// are dropped.
func Collect(pairs []Pair, isMulti func(name string) bool, skip ...string) Result {
	r := make(Result)
	for _, p := range pairs {
		if slices.Contains(skip, p.Name) {
			continue
		}
		if isMulti(p.Name) {
			list, _ := r[p.Name].([]string)
			r[p.Name] = append(list, p.Value)
			continue
		}
		r[p.Name] = p.Value
	}
	return r
}

// Values returns r with every entry as a list, the shape used to
// re-render submitted values.
func (r Result) Values() map[string][]string {
	out := make(map[string][]string, len(r))
	for name, v := range r {
		switch v := v.(type) {
		case string:
			out[name] = []string{v}
		case []string:
			out[name] = v
		}
	}
	return out
}

// Lines formats r as sorted "name: value" lines.
func (r Result) Lines() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	values := r.Values()
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = name + ": " + strings.Join(values[name], ", ")
	}
	return lines
}
