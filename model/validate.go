package model

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindStrings
)

type field struct {
	name     string
	label    string
	kind     fieldKind
	required bool
	plain    bool // strip markup
	min, max int
	upper    func() int // overrides max when set
	check    func(string) string
}

// Default and largest page size for findBooks.
const (
	DefaultCount = 5
	MaxCount     = 1000
)

var actions = map[string][]field{
	"newCart": {},
	"cartItem": {
		{name: "cartId", label: "Cart ID", required: true},
		{name: "sku", label: "SKU", required: true, check: checkISBN},
		{name: "nUnits", label: "Number of units", kind: kindInt, required: true, min: 0, max: math.MaxInt32},
	},
	"getCart": {
		{name: "cartId", label: "Cart ID", required: true},
	},
	"addBook": {
		{name: "isbn", label: "ISBN", required: true, check: checkISBN},
		{name: "title", label: "Title", required: true, plain: true},
		{name: "authors", label: "Authors", kind: kindStrings, required: true, plain: true},
		{name: "publisher", label: "Publisher", required: true, plain: true},
		{name: "year", label: "Year", kind: kindInt, required: true, min: 1448, upper: nextYear},
		{name: "pages", label: "Pages", kind: kindInt, required: true, min: 1, max: math.MaxInt32},
	},
	"findBooks": {
		{name: "isbn", label: "ISBN"},
		{name: "authorsTitleSearch", label: "Authors/Title search", plain: true},
		{name: "_index", label: "Index", kind: kindInt, min: 0, max: math.MaxInt32},
		// One over MaxCount lets a pager look ahead for a next page.
		{name: "_count", label: "Count", kind: kindInt, min: 1, max: MaxCount + 1},
	},
}

var textPolicy = bluemonday.StrictPolicy()

// validate checks raw against the field specs of action and returns the
// normalized values: trimmed strings, ints and string lists.
func validate(action string, raw Values) (Values, error) {
	fields, ok := actions[action]
	if !ok {
		return nil, Errors{{Code: CodeBadAct, Message: fmt.Sprintf("unknown action %q", action)}}
	}
	byName := make(map[string]field, len(fields))
	for _, f := range fields {
		byName[f.name] = f
	}

	var errs Errors
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == "_id" {
			errs = append(errs, Error{Code: CodeBadField, Message: "_id field not permitted", Name: "_id"})
			continue
		}
		if _, known := byName[name]; !known {
			errs = append(errs, Error{Code: CodeBadField, Message: fmt.Sprintf("unknown field %q for action %s", name, action), Name: name})
		}
	}

	out := make(Values, len(fields))
	for _, f := range fields {
		v, present := raw[f.name]
		if present {
			norm, err := f.normalize(v)
			if err != nil {
				errs = append(errs, Error{Code: CodeBadFieldValue, Message: err.Error(), Name: f.name})
				continue
			}
			if norm != nil {
				out[f.name] = norm
				continue
			}
		}
		if f.required {
			errs = append(errs, Error{
				Code:    CodeMissingField,
				Message: fmt.Sprintf("The field %s must be specified.", f.label),
				Name:    f.name,
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// normalize returns nil for values that count as absent.
func (f field) normalize(v any) (any, error) {
	switch f.kind {
	case kindInt:
		n, ok, err := toInt(v)
		if err != nil || !ok {
			if err == nil {
				return nil, nil
			}
			return nil, fmt.Errorf("%s must be an integer", f.label)
		}
		max := f.max
		if f.upper != nil {
			max = f.upper()
		}
		if n < f.min || n > max {
			return nil, fmt.Errorf("%s must be between %d and %d", f.label, f.min, max)
		}
		return n, nil
	case kindStrings:
		list, err := toStrings(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", f.label, err)
		}
		var out []string
		for _, s := range list {
			if s = f.clean(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil
	default:
		s, ok := v.(string)
		if !ok {
			if v == nil {
				return nil, nil
			}
			return nil, fmt.Errorf("%s must be a string", f.label)
		}
		s = f.clean(s)
		if s == "" {
			return nil, nil
		}
		if f.check != nil {
			if msg := f.check(s); msg != "" {
				return nil, fmt.Errorf("%s %s", f.label, msg)
			}
		}
		return s, nil
	}
}

func (f field) clean(s string) string {
	if f.plain {
		s = html.UnescapeString(textPolicy.Sanitize(s))
	}
	return strings.TrimSpace(s)
}

// toInt reports ok=false for empty values.
func toInt(v any) (int, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false, fmt.Errorf("not an integer")
		}
		return int(n), true, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return 0, false, err
		}
		return i, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported type %T", v)
	}
}

// toStrings accepts a list or a single string with ";" separated entries.
func toStrings(v any) ([]string, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Split(l, ";"), nil
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("entries must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a list of strings")
	}
}

// checkISBN accepts ISBN-10 and ISBN-13 with or without dashes.
func checkISBN(s string) string {
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") || strings.Contains(s, "--") {
		return "has misplaced dashes"
	}
	digits := strings.ReplaceAll(s, "-", "")
	if len(digits) != 10 && len(digits) != 13 {
		return "must have 10 or 13 digits"
	}
	for i, r := range digits {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == 'X' && i == len(digits)-1 && len(digits) == 10 {
			continue
		}
		return "contains invalid characters"
	}
	return ""
}

func nextYear() int {
	return time.Now().Year() + 1
}
