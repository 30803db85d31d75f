// Package param models analysis parameters: a central value with optional
// uncertainty and unit, an allowed range, a fixed/free flag, and a prior.
// It also implements hierarchy selection, where `param.<selector>.<name>`
// variants shadow the bare parameter according to the active selections.
package param

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/atrettin/pisa/internal/cfg"
	"github.com/atrettin/pisa/internal/quantity"
	"github.com/atrettin/pisa/internal/value"
)

// Param is one resolved analysis parameter. Numeric parameters carry a
// Quantity; non-numeric ones (file names, method switches) carry a cty
// scalar and have a nil Value.
type Param struct {
	Name   string
	Value  *quantity.Quantity
	Scalar cty.Value

	Fixed    bool
	HasRange bool
	Range    quantity.Range
	Prior    *Prior
}

// IsNumeric reports whether the parameter has a numeric central value.
func (p *Param) IsNumeric() bool {
	return p.Value != nil
}

// Attrs are the raw dotted-key metadata attachments of a parameter
// declaration. A nil field means the attribute was not assigned.
type Attrs struct {
	Fixed     *string
	Prior     *string
	PriorData *string
	Range     *string
}

// New builds a Param from its raw value text and metadata attachments.
// priorName is the key looked up in a spline prior data file (the parameter
// name plus a `_<selector>` suffix for hierarchy variants); loader locates
// the data file. Parameters default to fixed, matching the table format's
// convention that a free parameter must say so explicitly.
func New(name, rawValue string, attrs Attrs, loader cfg.Loader, priorName string) (*Param, error) {
	p := &Param{Name: name, Fixed: true, Scalar: cty.NilVal}

	if looksNumeric(rawValue) {
		q, err := quantity.Parse(rawValue)
		if err != nil {
			return nil, err
		}
		p.Value = &q
	} else {
		p.Scalar = value.ParseScalar(rawValue)
	}

	if attrs.Fixed != nil {
		fixed, err := strconv.ParseBool(strings.TrimSpace(*attrs.Fixed))
		if err != nil {
			return nil, &quantity.SyntaxError{Text: *attrs.Fixed,
				Reason: fmt.Sprintf("fixed flag of %q must be a boolean", name)}
		}
		p.Fixed = fixed
	}

	if err := p.attachPrior(attrs, loader, priorName); err != nil {
		return nil, err
	}

	if attrs.Range != nil {
		if !p.IsNumeric() {
			return nil, fmt.Errorf("param %q: range given for non-numeric value %q", name, rawValue)
		}
		r, err := quantity.ParseRange(*attrs.Range, *p.Value)
		if err != nil {
			return nil, err
		}
		p.Range = r
		p.HasRange = true
	}

	if !p.Fixed && !p.HasRange {
		return nil, fmt.Errorf("param %q: free parameters require a range", name)
	}

	return p, nil
}

func (p *Param) attachPrior(attrs Attrs, loader cfg.Loader, priorName string) error {
	if attrs.Prior == nil {
		// The +/- notation implies a gaussian prior.
		if p.IsNumeric() && p.Value.Sigma != 0 {
			p.Prior = &Prior{
				Kind:   PriorGaussian,
				Mean:   p.Value.Value,
				Stddev: p.Value.Sigma,
				Unit:   p.Value.Unit,
			}
		}
		return nil
	}

	switch kind := strings.TrimSpace(*attrs.Prior); kind {
	case "none":
		return nil
	case "uniform":
		p.Prior = &Prior{Kind: PriorUniform}
		return nil
	case "spline":
		if attrs.PriorData == nil || strings.TrimSpace(*attrs.PriorData) == "" {
			return fmt.Errorf("param %q: spline prior requires a prior.data path", p.Name)
		}
		if !p.IsNumeric() {
			return fmt.Errorf("param %q: spline prior on non-numeric value", p.Name)
		}
		prior, err := loadSplinePrior(loader, strings.TrimSpace(*attrs.PriorData), priorName, p.Value.Unit)
		if err != nil {
			return fmt.Errorf("param %q: %w", p.Name, err)
		}
		p.Prior = prior
		return nil
	default:
		if strings.Contains(kind, "gauss") {
			return fmt.Errorf("param %q: write gaussian priors with the +/- notation, not prior = %s", p.Name, kind)
		}
		return fmt.Errorf("param %q: unknown prior kind %q", p.Name, kind)
	}
}

// looksNumeric decides whether value text must parse under the quantity
// grammar. Anything carrying a unit tag or the +/- notation is numeric by
// construction; otherwise a plain float parse decides.
func looksNumeric(text string) bool {
	if strings.Contains(text, "units.") || strings.Contains(text, "+/-") {
		return true
	}
	_, err := strconv.ParseFloat(strings.ReplaceAll(text, " ", ""), 64)
	return err == nil
}

// Select picks the active variant of a declaration. The bare declaration is
// the default; each tag of the ordered selections that has a variant takes
// over, so later tags override earlier ones. Returns nil when only
// non-selected variants exist.
func Select[T any](selections []string, bare *T, variants map[string]*T) *T {
	winner := bare
	for _, tag := range selections {
		if v, ok := variants[tag]; ok {
			winner = v
		}
	}
	return winner
}
