// Package quantity parses the numeric value grammar used by parameter
// tables: bare numbers, numbers with a `units.<tag>` suffix, symmetric
// gaussian specs written as `value +/- sigma`, range literals such as
// `[7.85, 9.1] * units.deg`, and arithmetic range expressions over the
// keywords `nominal` and `sigma`.
package quantity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atrettin/pisa/internal/units"
)

// Quantity is a scalar with an optional gaussian width and a unit tag.
// Sigma is zero when the value was written without the `+/-` notation.
type Quantity struct {
	Value float64
	Sigma float64
	Unit  units.Unit
}

// Range is a closed interval with a unit tag.
type Range struct {
	Lo   float64
	Hi   float64
	Unit units.Unit
}

// SyntaxError reports value text that does not match the quantity grammar.
type SyntaxError struct {
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid value syntax %q: %s", e.Text, e.Reason)
}

func syntaxErr(text, format string, args ...any) error {
	return &SyntaxError{Text: text, Reason: fmt.Sprintf(format, args...)}
}

func (q Quantity) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%g", q.Value)
	if q.Sigma != 0 {
		fmt.Fprintf(&sb, " +/- %g", q.Sigma)
	}
	if q.Unit != "" && q.Unit != units.Dimensionless {
		fmt.Fprintf(&sb, " units.%s", q.Unit)
	}
	return sb.String()
}

// To converts the quantity (value and sigma) to another unit.
func (q Quantity) To(u units.Unit) (Quantity, error) {
	v, err := units.Convert(q.Value, q.Unit, u)
	if err != nil {
		return Quantity{}, err
	}
	s, err := units.Convert(q.Sigma, q.Unit, u)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: v, Sigma: s, Unit: u}, nil
}

// To converts both interval ends to another unit.
func (r Range) To(u units.Unit) (Range, error) {
	lo, err := units.Convert(r.Lo, r.Unit, u)
	if err != nil {
		return Range{}, err
	}
	hi, err := units.Convert(r.Hi, r.Unit, u)
	if err != nil {
		return Range{}, err
	}
	return Range{Lo: lo, Hi: hi, Unit: u}, nil
}

// Parse parses scalar quantity text: `<num>`, `<num> units.<unit>`, or
// `<num> +/- <num> units.<unit>`. Whitespace and a `*` before the unit tag
// are tolerated, mirroring the table files.
func Parse(text string) (Quantity, error) {
	compact := strings.ReplaceAll(text, " ", "")
	if compact == "" {
		return Quantity{}, syntaxErr(text, "empty value")
	}

	q := Quantity{Unit: units.Dimensionless}

	numPart := compact
	if idx := strings.Index(compact, "units."); idx >= 0 {
		tag := compact[idx+len("units."):]
		unit, err := units.Parse(tag)
		if err != nil {
			return Quantity{}, err
		}
		q.Unit = unit
		numPart = strings.TrimRight(compact[:idx], "*")
	}

	if lhs, rhs, found := strings.Cut(numPart, "+/-"); found {
		value, err := strconv.ParseFloat(lhs, 64)
		if err != nil {
			return Quantity{}, syntaxErr(text, "central value %q is not a number", lhs)
		}
		sigma, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return Quantity{}, syntaxErr(text, "uncertainty %q is not a number", rhs)
		}
		q.Value = value
		q.Sigma = sigma
		return q, nil
	}

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return Quantity{}, syntaxErr(text, "%q is not a number", numPart)
	}
	q.Value = value
	return q, nil
}

// IsQuantity reports whether the text parses under the quantity grammar.
// Used to distinguish numeric parameter values from plain string values.
func IsQuantity(text string) bool {
	_, err := Parse(text)
	return err == nil
}
