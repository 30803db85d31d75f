package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/atrettin/pisa/internal/binning"
	"github.com/atrettin/pisa/internal/cfg"
	"github.com/atrettin/pisa/internal/ctxlog"
	"github.com/atrettin/pisa/internal/param"
	"github.com/atrettin/pisa/internal/pipeline"
	"github.com/atrettin/pisa/internal/value"
)

func (r *Resolver) assemble(ctx context.Context, doc *cfg.Document, sub *substitution) (*Resolved, error) {
	pipeSec, ok := doc.Section("pipeline")
	if !ok {
		return nil, fmt.Errorf("%s: no [pipeline] section", doc.Path)
	}

	orderEntry, ok := pipeSec.Get("order")
	if !ok {
		return nil, fmt.Errorf("%s: [pipeline] section has no order", doc.Path)
	}
	orderText, _ := sub.textFor("pipeline", "order")
	order, err := pipeline.ParseOrder(orderText)
	if err != nil {
		return nil, entryErr(orderEntry, err)
	}

	selections := r.opts.Selections
	if selections == nil {
		if _, ok := pipeSec.Get("param_selections"); ok {
			text, _ := sub.textFor("pipeline", "param_selections")
			selections = pipeline.ParseSelections(text)
		}
	}

	vocabulary := make(map[string]bool, len(selections)+len(r.opts.KnownSelectors))
	for _, tag := range selections {
		vocabulary[tag] = true
	}
	for _, tag := range r.opts.KnownSelectors {
		vocabulary[tag] = true
	}

	binnings, err := r.buildBinnings(doc, sub)
	if err != nil {
		return nil, err
	}

	p := &pipeline.Pipeline{
		Order:      order,
		Selections: selections,
		Binnings:   binnings,
	}

	// Params shared across stages resolve to a single object, owned by the
	// first stage that declares them.
	shared := make(map[string]*param.Param)
	owner := make(map[string]string)

	for _, ref := range order {
		stage, err := r.buildStage(ctx, doc, sub, ref, vocabulary, selections, binnings, shared, owner)
		if err != nil {
			return nil, err
		}
		p.Stages = append(p.Stages, stage)
	}

	return &Resolved{Pipeline: p, Table: flatten(p, owner)}, nil
}

// buildBinnings assembles every binning defined in the [binning] namespace,
// identified by their `.order` keys.
func (r *Resolver) buildBinnings(doc *cfg.Document, sub *substitution) (map[string]*binning.Spec, error) {
	sec, ok := doc.Section("binning")
	if !ok {
		return map[string]*binning.Spec{}, nil
	}

	lookup := func(key string) (string, bool) {
		return sub.textFor("binning", key)
	}

	out := make(map[string]*binning.Spec)
	for _, e := range sec.Entries {
		name, found := strings.CutSuffix(e.Key, ".order")
		if !found {
			continue
		}
		orderText, _ := sub.textFor("binning", e.Key)
		spec, err := binning.Build(name, orderText, lookup)
		if err != nil {
			return nil, entryErr(e, err)
		}
		out[name] = spec
	}
	return out, nil
}

// paramDecl is one `param.*` declaration before selection: the raw
// (substituted) value plus its metadata attachments.
type paramDecl struct {
	key   param.Key
	entry *cfg.Entry
	raw   string
	attrs param.Attrs
}

func (d *paramDecl) hasAttrs() bool {
	return d.attrs.Fixed != nil || d.attrs.Prior != nil || d.attrs.PriorData != nil || d.attrs.Range != nil
}

func (r *Resolver) buildStage(
	ctx context.Context,
	doc *cfg.Document,
	sub *substitution,
	ref pipeline.StageRef,
	vocabulary map[string]bool,
	selections []string,
	binnings map[string]*binning.Spec,
	shared map[string]*param.Param,
	owner map[string]string,
) (*pipeline.Stage, error) {
	logger := ctxlog.FromContext(ctx)

	ns := "stage." + ref.Stage
	sec, ok := doc.Section(ns)
	if !ok {
		return nil, fmt.Errorf("pipeline order lists %q but there is no [%s] section", ref, ns)
	}

	knownSelector := func(s string) bool { return vocabulary[s] }

	// First pass: group declarations and metadata so attachment order does
	// not matter.
	decls := make(map[string]map[string]*paramDecl) // name -> selector -> decl
	var declOrder []string
	var optionEntries []*cfg.Entry

	for _, e := range sec.Entries {
		key, isParam := param.ParseKey(e.Key, knownSelector)
		if !isParam {
			optionEntries = append(optionEntries, e)
			continue
		}

		byName := decls[key.Name]
		if byName == nil {
			byName = make(map[string]*paramDecl)
			decls[key.Name] = byName
			declOrder = append(declOrder, key.Name)
		}
		d := byName[key.Selector]
		if d == nil {
			d = &paramDecl{key: param.Key{Name: key.Name, Selector: key.Selector}}
			byName[key.Selector] = d
		}

		text, _ := sub.textFor(ns, e.Key)
		switch key.Attr {
		case "":
			d.entry = e
			d.raw = text
		case "fixed":
			d.attrs.Fixed = &text
		case "prior":
			d.attrs.Prior = &text
		case "prior.data":
			d.attrs.PriorData = &text
		case "range":
			d.attrs.Range = &text
		}
	}

	stage := &pipeline.Stage{
		Name:     ref.Stage,
		Service:  ref.Service,
		Params:   param.NewSet(),
		Binnings: make(map[string]*binning.Spec),
	}

	for _, name := range declOrder {
		byName := decls[name]

		// Metadata attached to a declaration that never got a value is a
		// dangling dotted sub-key.
		for sel, d := range byName {
			if d.entry == nil {
				return nil, fmt.Errorf("[%s]: metadata for param %q (selector %q) but the param itself is never assigned",
					ns, name, sel)
			}
		}

		bare := byName[""]
		variants := make(map[string]*paramDecl, len(byName))
		for sel, d := range byName {
			if sel != "" {
				variants[sel] = d
			}
		}

		active := param.Select(selections, bare, variants)
		if active == nil {
			continue // only variants of non-selected hierarchies exist
		}

		if prev, ok := shared[name]; ok {
			// A param already defined by an earlier stage is shared by
			// identity; redefining its metadata here would silently fork it.
			if active.hasAttrs() {
				return nil, entryErr(active.entry,
					fmt.Errorf("param %q is already defined by stage %q and may not redefine range/prior/fixed", name, owner[name]))
			}
			if err := stage.Params.Add(prev); err != nil {
				return nil, entryErr(active.entry, err)
			}
			logger.Debug("param shared from earlier stage", "param", name, "owner", owner[name], "stage", ref.Stage)
			continue
		}

		built, err := param.New(name, active.raw, active.attrs, r.loader, active.key.PriorName())
		if err != nil {
			return nil, entryErr(active.entry, err)
		}
		if err := stage.Params.Add(built); err != nil {
			return nil, entryErr(active.entry, err)
		}
		shared[name] = built
		owner[name] = ref.Stage
	}

	for _, e := range optionEntries {
		text, _ := sub.textFor(ns, e.Key)
		text = strings.TrimSpace(text)

		if strings.Contains(e.Key, "binning") {
			spec, ok := binnings[text]
			if !ok {
				return nil, entryErr(e, fmt.Errorf("unknown binning %q", text))
			}
			stage.Binnings[e.Key] = spec
			stage.Options = append(stage.Options, pipeline.Option{Key: e.Key, Value: value.ParseScalar(text)})
			continue
		}

		var opt pipeline.Option
		opt.Key = e.Key
		if strings.HasPrefix(text, "[") {
			opt.Value = value.ParseList(text)
		} else {
			opt.Value = value.ParseScalar(text)
		}
		stage.Options = append(stage.Options, opt)
	}

	return stage, nil
}

// flatten produces the final ordered table: for each stage in pipeline
// order, its owned params under their unqualified names, then its options.
// Shared params appear once, under the stage that first declared them.
func flatten(p *pipeline.Pipeline, owner map[string]string) []TableEntry {
	var table []TableEntry
	for _, stage := range p.Stages {
		for _, name := range stage.Params.Names() {
			if owner[name] != stage.Name {
				continue
			}
			prm, _ := stage.Params.Get(name)
			table = append(table, TableEntry{
				Name:  stage.Name + "." + name,
				Param: prm,
			})
		}
		for _, opt := range stage.Options {
			table = append(table, TableEntry{
				Name:  stage.Name + "." + opt.Key,
				Value: opt.Value,
			})
		}
	}
	return table
}
