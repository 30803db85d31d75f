// Package pipeline models the resolved shape of a pipeline configuration:
// the ordered stage/service list from the `[pipeline]` section, the active
// hierarchy selections, and the per-stage parameter sets and options handed
// to the consuming framework.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/atrettin/pisa/internal/binning"
	"github.com/atrettin/pisa/internal/param"
	"github.com/atrettin/pisa/internal/value"
)

// StageRef is one `stage:service` element of the pipeline order.
type StageRef struct {
	Stage   string
	Service string
}

func (r StageRef) String() string {
	return r.Stage + ":" + r.Service
}

// Option is a non-param stage setting with its resolved scalar value.
type Option struct {
	Key   string
	Value cty.Value
}

// Stage is one fully resolved stage section.
type Stage struct {
	Name    string
	Service string
	Params  *param.Set
	Options []Option

	// Binnings maps option keys that referenced a named binning (e.g.
	// `output_binning = reco`) to the resolved spec.
	Binnings map[string]*binning.Spec
}

// Pipeline is the resolved top-level structure.
type Pipeline struct {
	Order      []StageRef
	Selections []string
	Stages     []*Stage
	Binnings   map[string]*binning.Spec
}

// Stage returns the resolved stage with the given name.
func (p *Pipeline) Stage(name string) (*Stage, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ParseOrder parses the `[pipeline]` order value, a comma-separated list of
// `stage:service` pairs.
func ParseOrder(raw string) ([]StageRef, error) {
	items := value.SplitTop(raw, ',')
	if len(items) == 0 {
		return nil, fmt.Errorf("pipeline order is empty")
	}

	refs := make([]StageRef, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		stage, service, found := strings.Cut(item, ":")
		stage = strings.TrimSpace(stage)
		service = strings.TrimSpace(service)
		if !found || stage == "" || service == "" {
			return nil, fmt.Errorf("pipeline order element %q is not of the form stage:service", item)
		}
		if seen[stage] {
			return nil, fmt.Errorf("stage %q listed twice in pipeline order", stage)
		}
		seen[stage] = true
		refs = append(refs, StageRef{Stage: stage, Service: service})
	}
	return refs, nil
}

// ParseSelections parses the `param_selections` value, an ordered
// comma-separated list of selector tags.
func ParseSelections(raw string) []string {
	items := value.SplitTop(raw, ',')
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.ToLower(strings.TrimSpace(item)))
	}
	return out
}
