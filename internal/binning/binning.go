// Package binning parses the `[binning]` section of a pipeline
// configuration into axis and binning specifications that stage configs
// reference by name. The specs stay descriptive; histogram construction is
// the consuming framework's business.
package binning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atrettin/pisa/internal/quantity"
	"github.com/atrettin/pisa/internal/value"
)

// Axis is one dimension of a binning: `{'num_bins': 40, 'is_log': True,
// 'domain': [1, 80] * units.GeV, 'tex': r'$E_{reco}$'}`.
type Axis struct {
	Name    string
	NumBins int
	IsLog   bool
	IsLin   bool
	Domain  quantity.Range
	Tex     string
}

// Spec is a named multi-dimensional binning, its axes in `.order` order.
type Spec struct {
	Name string
	Axes []*Axis
}

// AxisNames returns the axis names in order.
func (s *Spec) AxisNames() []string {
	names := make([]string, len(s.Axes))
	for i, a := range s.Axes {
		names[i] = a.Name
	}
	return names
}

// Build assembles a binning spec. orderRaw is the `.order` value text; the
// lookup returns the raw axis mapping for `<name>.<axis>` keys.
func Build(name, orderRaw string, lookup func(key string) (string, bool)) (*Spec, error) {
	spec := &Spec{Name: name}

	order := value.SplitTop(strings.Trim(strings.TrimSpace(orderRaw), "[]"), ',')
	if len(order) == 0 {
		return nil, fmt.Errorf("binning %q: empty axis order", name)
	}

	for _, axisName := range order {
		raw, ok := lookup(name + "." + axisName)
		if !ok {
			return nil, fmt.Errorf("binning %q: axis %q listed in order but never defined", name, axisName)
		}
		axis, err := ParseAxis(axisName, raw)
		if err != nil {
			return nil, fmt.Errorf("binning %q: %w", name, err)
		}
		spec.Axes = append(spec.Axes, axis)
	}

	return spec, nil
}

// ParseAxis parses one axis mapping literal.
func ParseAxis(name, raw string) (*Axis, error) {
	mapping, err := value.ParseMapping(raw)
	if err != nil {
		return nil, fmt.Errorf("axis %q: %w", name, err)
	}

	axis := &Axis{Name: name}
	for _, key := range mapping.Keys {
		text, _ := mapping.Get(key)
		switch key {
		case "num_bins":
			n, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("axis %q: num_bins must be a positive integer, got %q", name, text)
			}
			axis.NumBins = n
		case "is_log":
			axis.IsLog, err = parseBool(key, text)
		case "is_lin":
			axis.IsLin, err = parseBool(key, text)
		case "domain":
			axis.Domain, err = quantity.ParseRange(text, quantity.Quantity{})
		case "tex":
			axis.Tex = unraw(text)
		default:
			return nil, fmt.Errorf("axis %q: unknown field %q", name, key)
		}
		if err != nil {
			return nil, fmt.Errorf("axis %q: %w", name, err)
		}
	}

	if axis.NumBins == 0 {
		return nil, fmt.Errorf("axis %q: num_bins is required", name)
	}
	if axis.Domain == (quantity.Range{}) {
		return nil, fmt.Errorf("axis %q: domain is required", name)
	}
	if axis.IsLog && axis.IsLin {
		return nil, fmt.Errorf("axis %q: is_log and is_lin are mutually exclusive", name)
	}

	return axis, nil
}

func parseBool(field, text string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", field, text)
	}
	return b, nil
}

// unraw strips the quotes of a (possibly raw, r'...') string literal.
func unraw(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "r'") || strings.HasPrefix(s, "r\"") {
		s = s[1:]
	}
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
