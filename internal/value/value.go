// Package value converts scalar configuration literals into cty values, the
// dynamic value model handed to downstream consumers of a resolved pipeline
// table. Quantities with units live in the quantity package; everything else
// (booleans, None, numbers, strings, comma lists, mapping literals used by
// binning axis specs) is handled here.
package value

import (
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/atrettin/pisa/internal/quantity"
)

// ParseScalar interprets a scalar literal. The special literals true/false
// and none (case-insensitive) become a cty bool and a null; numeric text
// becomes a cty number; anything else is a string with surrounding quotes
// stripped.
func ParseScalar(text string) cty.Value {
	trimmed := strings.TrimSpace(text)
	switch strings.ToLower(trimmed) {
	case "true":
		return cty.True
	case "false":
		return cty.False
	case "none", "":
		return cty.NullVal(cty.DynamicPseudoType)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return cty.NumberFloatVal(f)
	}
	return cty.StringVal(unquote(trimmed))
}

// ParseList interprets a comma-separated list as a cty tuple of scalars.
// A surrounding `[...]` is optional.
func ParseList(text string) cty.Value {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")

	parts := SplitTop(trimmed, ',')
	if len(parts) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, 0, len(parts))
	for _, part := range parts {
		vals = append(vals, ParseScalar(part))
	}
	return cty.TupleVal(vals)
}

// SplitTop splits text on a separator at nesting depth zero, respecting
// brackets, braces, parentheses, and quotes. Empty fields are dropped and
// surrounding whitespace is stripped.
func SplitTop(text string, sep rune) []string {
	var parts []string
	var depth int
	var quote rune
	start := 0

	flush := func(end int) {
		field := strings.TrimSpace(text[start:end])
		if field != "" {
			parts = append(parts, field)
		}
	}

	for i, c := range text {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '{' || c == '(':
			depth++
		case c == ']' || c == '}' || c == ')':
			depth--
		case c == sep && depth == 0:
			flush(i)
			start = i + len(string(c))
		}
	}
	flush(len(text))
	return parts
}

// Mapping is a `{'key': value, ...}` literal split into raw value text per
// key, preserving declaration order. Values stay unparsed because callers
// interpret them under different grammars (quantities, scalars, lists).
type Mapping struct {
	Keys []string
	raw  map[string]string
}

// Get returns the raw value text for a key.
func (m *Mapping) Get(key string) (string, bool) {
	v, ok := m.raw[key]
	return v, ok
}

// ParseMapping parses a mapping literal of the form used by binning axis
// specs: `{'num_bins': 40, 'is_log': True, 'domain': [1, 80] * units.GeV}`.
func ParseMapping(text string) (*Mapping, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, &quantity.SyntaxError{Text: text, Reason: "mapping literal must be enclosed in braces"}
	}
	body := trimmed[1 : len(trimmed)-1]

	m := &Mapping{raw: make(map[string]string)}
	for _, item := range SplitTop(body, ',') {
		key, val, found := cutTop(item, ':')
		if !found {
			return nil, &quantity.SyntaxError{Text: text, Reason: "mapping item " + strconv.Quote(item) + " has no colon"}
		}
		key = unquote(strings.TrimSpace(key))
		if key == "" {
			return nil, &quantity.SyntaxError{Text: text, Reason: "mapping item with empty key"}
		}
		if _, exists := m.raw[key]; exists {
			return nil, &quantity.SyntaxError{Text: text, Reason: "mapping key " + strconv.Quote(key) + " repeated"}
		}
		m.Keys = append(m.Keys, key)
		m.raw[key] = strings.TrimSpace(val)
	}
	return m, nil
}

// cutTop is like strings.Cut but only splits at nesting depth zero.
func cutTop(text string, sep rune) (string, string, bool) {
	var depth int
	var quote rune
	for i, c := range text {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '{' || c == '(':
			depth++
		case c == ']' || c == '}' || c == ')':
			depth--
		case c == sep && depth == 0:
			return text[:i], text[i+len(string(c)):], true
		}
	}
	return text, "", false
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
