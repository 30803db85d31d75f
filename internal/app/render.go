package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/atrettin/pisa/internal/param"
	"github.com/atrettin/pisa/internal/resolver"
)

// renderText writes a human-readable listing of the resolved pipeline.
func renderText(w io.Writer, root string, res *resolver.Resolved) error {
	fmt.Fprintf(w, "# %s\n", root)

	var order []string
	for _, ref := range res.Pipeline.Order {
		order = append(order, ref.String())
	}
	fmt.Fprintf(w, "pipeline: %s\n", strings.Join(order, ", "))
	if len(res.Pipeline.Selections) > 0 {
		fmt.Fprintf(w, "selections: %s\n", strings.Join(res.Pipeline.Selections, ", "))
	}

	for _, e := range res.Table {
		if e.Param != nil {
			fmt.Fprintf(w, "%s = %s\n", e.Name, formatParam(e.Param))
			continue
		}
		fmt.Fprintf(w, "%s = %s\n", e.Name, formatCty(e.Value))
	}
	fmt.Fprintln(w)
	return nil
}

func formatParam(p *param.Param) string {
	var sb strings.Builder
	if p.IsNumeric() {
		sb.WriteString(p.Value.String())
	} else {
		sb.WriteString(formatCty(p.Scalar))
	}

	var notes []string
	if !p.Fixed {
		notes = append(notes, "free")
	}
	if p.HasRange {
		notes = append(notes, fmt.Sprintf("range [%g, %g] %s", p.Range.Lo, p.Range.Hi, p.Range.Unit))
	}
	if p.Prior != nil {
		notes = append(notes, fmt.Sprintf("prior %s", p.Prior.Kind))
	}
	if len(notes) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(notes, ", "))
	}
	return sb.String()
}

func formatCty(v cty.Value) string {
	switch {
	case v.IsNull():
		return "None"
	case v.Type() == cty.String:
		return v.AsString()
	case v.Type() == cty.Bool:
		if v.True() {
			return "True"
		}
		return "False"
	case v.Type() == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return fmt.Sprintf("%g", f)
	case v.Type().IsTupleType():
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			parts = append(parts, formatCty(ev))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return v.GoString()
	}
}

// jsonParam is the JSON shape of one resolved parameter.
type jsonParam struct {
	Value float64 `json:"value"`
	Sigma float64 `json:"sigma,omitempty"`
	Unit  string  `json:"unit,omitempty"`
	Fixed bool    `json:"fixed"`

	RangeLo *float64 `json:"range_lo,omitempty"`
	RangeHi *float64 `json:"range_hi,omitempty"`
	Prior   string   `json:"prior,omitempty"`
}

// jsonEntry is one row of the table in JSON output. Exactly one of Param
// and Value is set.
type jsonEntry struct {
	Name  string                   `json:"name"`
	Param *jsonParam               `json:"param,omitempty"`
	Value *ctyjson.SimpleJSONValue `json:"value,omitempty"`
}

type jsonDocument struct {
	Path       string      `json:"path"`
	Order      []string    `json:"order"`
	Selections []string    `json:"selections,omitempty"`
	Table      []jsonEntry `json:"table"`
}

// renderJSON writes the resolved pipeline as a single JSON document.
func renderJSON(w io.Writer, root string, res *resolver.Resolved) error {
	out := jsonDocument{Path: root}
	for _, ref := range res.Pipeline.Order {
		out.Order = append(out.Order, ref.String())
	}
	out.Selections = res.Pipeline.Selections

	for _, e := range res.Table {
		row := jsonEntry{Name: e.Name}
		switch {
		case e.Param != nil && e.Param.IsNumeric():
			jp := &jsonParam{
				Value: e.Param.Value.Value,
				Sigma: e.Param.Value.Sigma,
				Unit:  string(e.Param.Value.Unit),
				Fixed: e.Param.Fixed,
			}
			if e.Param.HasRange {
				lo, hi := e.Param.Range.Lo, e.Param.Range.Hi
				jp.RangeLo, jp.RangeHi = &lo, &hi
			}
			if e.Param.Prior != nil {
				jp.Prior = string(e.Param.Prior.Kind)
			}
			row.Param = jp
		case e.Param != nil:
			row.Value = &ctyjson.SimpleJSONValue{Value: e.Param.Scalar}
		default:
			row.Value = &ctyjson.SimpleJSONValue{Value: e.Value}
		}
		out.Table = append(out.Table, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
