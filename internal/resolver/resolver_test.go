package resolver

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/atrettin/pisa/internal/cfg"
	"github.com/atrettin/pisa/internal/param"
	"github.com/atrettin/pisa/internal/units"
)

func resolveTree(t *testing.T, files map[string]string, opts Options) (*Resolved, error) {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	r := New(cfg.NewFSLoader(fsys), opts)
	return r.Resolve(context.Background(), "pipeline.cfg")
}

func mustResolveTree(t *testing.T, files map[string]string, opts Options) *Resolved {
	t.Helper()
	res, err := resolveTree(t, files, opts)
	require.NoError(t, err)
	return res
}

const oscCfg = `theta12 = 33.4

[params]
deltacp = 0.0
`

func basicTree() map[string]string {
	return map[string]string{
		"osc.cfg": oscCfg,
		"pipeline.cfg": `#include osc.cfg as osc

[pipeline]
order = flux:honda, osc:prob3

[stage.flux]
param.energy_scale = 1.0 units.dimensionless
param.energy_scale.fixed = False
param.energy_scale.range = nominal + [-0.2, +0.2]
output_binning = reco
oversample = 10

[stage.osc]
param.theta12 = ${osc:theta12} units.deg
input_names = ["nue", "numu"]

[binning]
reco.order = [energy]
reco.energy = {'num_bins': 40, 'is_log': True, 'domain': [1, 80] * units.GeV, 'tex': r'E_{\rm reco}'}
`,
	}
}

func TestResolveBasicPipeline(t *testing.T) {
	res := mustResolveTree(t, basicTree(), Options{})

	require.Len(t, res.Pipeline.Stages, 2)
	assert.Equal(t, "flux", res.Pipeline.Stages[0].Name)
	assert.Equal(t, "honda", res.Pipeline.Stages[0].Service)
	assert.Equal(t, "prob3", res.Pipeline.Stages[1].Service)

	theta12, ok := res.Pipeline.Stages[1].Params.Get("theta12")
	require.True(t, ok)
	require.NotNil(t, theta12.Value)
	assert.InDelta(t, 33.4, theta12.Value.Value, 1e-12)
	assert.Equal(t, units.Unit("deg"), theta12.Value.Unit)
}

func TestResolveIsDeterministic(t *testing.T) {
	first := mustResolveTree(t, basicTree(), Options{})
	second := mustResolveTree(t, basicTree(), Options{})

	opts := cmp.Options{
		cmp.AllowUnexported(param.Set{}),
		cmpopts.IgnoreUnexported(cty.Value{}),
	}
	if diff := cmp.Diff(first.Pipeline.Order, second.Pipeline.Order); diff != "" {
		t.Fatalf("order differs between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Table, second.Table, opts); diff != "" {
		t.Fatalf("table differs between runs (-first +second):\n%s", diff)
	}
}

func TestReferenceEqualsLiteral(t *testing.T) {
	viaRef := mustResolveTree(t, basicTree(), Options{})

	files := basicTree()
	files["pipeline.cfg"] = `#include osc.cfg as osc

[pipeline]
order = flux:honda, osc:prob3

[stage.flux]
param.energy_scale = 1.0 units.dimensionless
param.energy_scale.fixed = False
param.energy_scale.range = nominal + [-0.2, +0.2]
output_binning = reco
oversample = 10

[stage.osc]
param.theta12 = 33.4 units.deg
input_names = ["nue", "numu"]

[binning]
reco.order = [energy]
reco.energy = {'num_bins': 40, 'is_log': True, 'domain': [1, 80] * units.GeV, 'tex': r'E_{\rm reco}'}
`
	viaLiteral := mustResolveTree(t, files, Options{})

	refP, _ := viaRef.Pipeline.Stages[1].Params.Get("theta12")
	litP, _ := viaLiteral.Pipeline.Stages[1].Params.Get("theta12")
	assert.Equal(t, litP.Value, refP.Value)
}

func TestHierarchySelection(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = osc:prob3
param_selections = nh

[stage.osc]
param.nh.theta13 = 8.5 +/- 0.205 units.deg
param.nh.theta13.fixed = False
param.nh.theta13.range = nominal + [-3, +3] * sigma
param.ih.theta13 = 8.6 +/- 0.21 units.deg
param.deltam31 = 2.5e-3 units.eV**2
param.deltam31.fixed = False
param.deltam31.range = [2.3e-3, 2.7e-3] * units.eV**2
`,
	}
	res := mustResolveTree(t, files, Options{})

	osc := res.Pipeline.Stages[0]
	theta13, ok := osc.Params.Get("theta13")
	require.True(t, ok, "selected variant must surface under its unqualified name")
	require.NotNil(t, theta13.Value)
	assert.InDelta(t, 8.5, theta13.Value.Value, 1e-12)
	assert.InDelta(t, 0.205, theta13.Value.Sigma, 1e-12)
	assert.Equal(t, units.Unit("deg"), theta13.Value.Unit)

	assert.False(t, theta13.Fixed)
	require.True(t, theta13.HasRange)
	assert.InDelta(t, 8.5-3*0.205, theta13.Range.Lo, 1e-9)
	assert.InDelta(t, 8.5+3*0.205, theta13.Range.Hi, 1e-9)
	assert.Equal(t, units.Unit("deg"), theta13.Range.Unit)

	require.NotNil(t, theta13.Prior)
	assert.Equal(t, param.PriorGaussian, theta13.Prior.Kind)
	assert.InDelta(t, 0.205, theta13.Prior.Stddev, 1e-12)

	// The bare variant is unaffected by selection.
	deltam31, ok := osc.Params.Get("deltam31")
	require.True(t, ok)
	assert.InDelta(t, 2.5e-3, deltam31.Value.Value, 1e-15)
	assert.Equal(t, units.Unit("eV**2"), deltam31.Value.Unit)
	require.True(t, deltam31.HasRange)
	assert.InDelta(t, 2.3e-3, deltam31.Range.Lo, 1e-15)
	assert.InDelta(t, 2.7e-3, deltam31.Range.Hi, 1e-15)
	assert.Equal(t, units.Unit("eV**2"), deltam31.Range.Unit)
}

func TestLaterSelectionWins(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = osc:prob3
param_selections = nh, ih

[stage.osc]
param.nh.theta13 = 8.5 units.deg
param.ih.theta13 = 8.6 units.deg
`,
	}
	res := mustResolveTree(t, files, Options{})

	theta13, ok := res.Pipeline.Stages[0].Params.Get("theta13")
	require.True(t, ok)
	assert.InDelta(t, 8.6, theta13.Value.Value, 1e-12)
}

func TestSelectionsOptionOverridesDocument(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = osc:prob3
param_selections = nh

[stage.osc]
param.nh.theta13 = 8.5 units.deg
param.ih.theta13 = 8.6 units.deg
`,
	}
	res := mustResolveTree(t, files, Options{Selections: []string{"ih"}})

	theta13, ok := res.Pipeline.Stages[0].Params.Get("theta13")
	require.True(t, ok)
	assert.InDelta(t, 8.6, theta13.Value.Value, 1e-12)
}

func TestUnresolvedReference(t *testing.T) {
	files := basicTree()
	files["pipeline.cfg"] = `#include osc.cfg as osc

[pipeline]
order = osc:prob3

[stage.osc]
param.theta12 = ${osc:nonexistent} units.deg
`
	_, err := resolveTree(t, files, Options{})
	var refErr *UnresolvedReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "osc:nonexistent", refErr.Ref)
	assert.Equal(t, "stage.osc:param.theta12", refErr.Key)
	assert.Equal(t, "pipeline.cfg", refErr.Pos.File)
	assert.Positive(t, refErr.Pos.Line)
}

func TestCircularReference(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = osc:prob3

[stage.osc]
a = ${stage.osc:b}
b = ${stage.osc:a}
param.theta12 = 33.4 units.deg
`,
	}
	_, err := resolveTree(t, files, Options{})
	var cycErr *CircularReferenceError
	require.ErrorAs(t, err, &cycErr)
	assert.Contains(t, cycErr.Keys, "stage.osc:a")
	assert.Contains(t, cycErr.Keys, "stage.osc:b")
}

func TestCircularInclude(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": "#include other.cfg as other\n\n[pipeline]\norder = osc:prob3\n",
		"other.cfg":    "#include pipeline.cfg as root\n",
	}
	_, err := resolveTree(t, files, Options{})
	var incErr *cfg.CircularIncludeError
	require.ErrorAs(t, err, &incErr)
}

func TestSharedParamSingleObject(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = flux:honda, osc:prob3

[stage.flux]
param.livetime = 2.5 units.dimensionless

[stage.osc]
param.livetime = 2.5 units.dimensionless
`,
	}
	res := mustResolveTree(t, files, Options{})

	fromFlux, _ := res.Pipeline.Stages[0].Params.Get("livetime")
	fromOsc, _ := res.Pipeline.Stages[1].Params.Get("livetime")
	assert.Same(t, fromFlux, fromOsc)

	var rows []string
	for _, e := range res.Table {
		if e.Param != nil {
			rows = append(rows, e.Name)
		}
	}
	assert.Equal(t, []string{"flux.livetime"}, rows, "shared param appears once, under the first declaring stage")
}

func TestSharedParamMayNotRedefineMetadata(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = flux:honda, osc:prob3

[stage.flux]
param.livetime = 2.5 units.dimensionless

[stage.osc]
param.livetime = 2.5 units.dimensionless
param.livetime.fixed = False
param.livetime.range = nominal + [-1, +1]
`,
	}
	_, err := resolveTree(t, files, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
}

func TestMetadataWithoutDeclaration(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = osc:prob3

[stage.osc]
param.theta12.fixed = False
`,
	}
	_, err := resolveTree(t, files, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never assigned")
}

func TestStageOptionsAndBinnings(t *testing.T) {
	res := mustResolveTree(t, basicTree(), Options{})

	flux := res.Pipeline.Stages[0]
	spec, ok := flux.Binnings["output_binning"]
	require.True(t, ok)
	assert.Equal(t, "reco", spec.Name)
	require.Len(t, spec.Axes, 1)
	assert.Equal(t, "energy", spec.Axes[0].Name)
	assert.Equal(t, 40, spec.Axes[0].NumBins)
	assert.True(t, spec.Axes[0].IsLog)

	var oversample, inputNames cty.Value
	for _, e := range res.Table {
		switch e.Name {
		case "flux.oversample":
			oversample = e.Value
		case "osc.input_names":
			inputNames = e.Value
		}
	}
	require.False(t, oversample.IsNull())
	f, _ := oversample.AsBigFloat().Float64()
	assert.InDelta(t, 10, f, 1e-12)

	require.False(t, inputNames.IsNull())
	assert.Equal(t, 2, inputNames.LengthInt())
	assert.Equal(t, "nue", inputNames.Index(cty.NumberIntVal(0)).AsString())
}

func TestUnknownBinningName(t *testing.T) {
	files := basicTree()
	files["pipeline.cfg"] = `[pipeline]
order = flux:honda

[stage.flux]
param.energy_scale = 1.0 units.dimensionless
output_binning = missing
`
	_, err := resolveTree(t, files, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown binning "missing"`)
}

func TestMissingStageSection(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": "[pipeline]\norder = flux:honda\n",
	}
	_, err := resolveTree(t, files, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage.flux")
}

func TestSplinePriorFromIncludedData(t *testing.T) {
	files := map[string]string{
		"priors/theta23_splines.json": `{
  "theta23_nh": {"knots": [35, 40, 45, 50, 55], "coeffs": [0.1, 0.3, 0.9, 0.4, 0.2], "deg": 3, "units": "deg"}
}`,
		"pipeline.cfg": `[pipeline]
order = osc:prob3
param_selections = nh

[stage.osc]
param.nh.theta23 = 42.3 units.deg
param.nh.theta23.fixed = False
param.nh.theta23.range = [35, 55] * units.deg
param.nh.theta23.prior = spline
param.nh.theta23.prior.data = priors/theta23_splines.json
`,
	}
	res := mustResolveTree(t, files, Options{})

	theta23, ok := res.Pipeline.Stages[0].Params.Get("theta23")
	require.True(t, ok)
	require.NotNil(t, theta23.Prior)
	assert.Equal(t, param.PriorSpline, theta23.Prior.Kind)
	assert.Equal(t, 3, theta23.Prior.Deg)
	assert.Len(t, theta23.Prior.Knots, 5)
	assert.InDelta(t, 35, theta23.Prior.Knots[0], 1e-12)
}

func TestSplinePriorWithoutDataFails(t *testing.T) {
	files := map[string]string{
		"pipeline.cfg": `[pipeline]
order = osc:prob3

[stage.osc]
param.theta23 = 42.3 units.deg
param.theta23.prior = spline
`,
	}
	_, err := resolveTree(t, files, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prior.data")
}

func TestIncludedPipelineSection(t *testing.T) {
	// Sections of an included file are addressable both through references
	// and as the source of stage definitions, as long as the top-level
	// document mounts them under a prefix the pipeline order can reach.
	files := map[string]string{
		"settings.cfg": "[flux]\nscale = 1.3\n",
		"pipeline.cfg": `#include settings.cfg as settings

[pipeline]
order = flux:honda

[stage.flux]
param.energy_scale = ${settings.flux:scale} units.dimensionless
`,
	}
	res := mustResolveTree(t, files, Options{})
	p, ok := res.Pipeline.Stages[0].Params.Get("energy_scale")
	require.True(t, ok)
	assert.InDelta(t, 1.3, p.Value.Value, 1e-12)
}
