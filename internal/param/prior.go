package param

import (
	"encoding/json"
	"fmt"

	"github.com/atrettin/pisa/internal/cfg"
	"github.com/atrettin/pisa/internal/units"
)

// PriorKind discriminates the supported prior distributions.
type PriorKind string

const (
	PriorUniform  PriorKind = "uniform"
	PriorGaussian PriorKind = "gaussian"
	PriorSpline   PriorKind = "spline"
)

// Prior constrains a parameter beyond its plain range. Gaussian priors come
// from the +/- notation; spline priors reference a JSON data file whose
// knots are converted to the parameter's unit at load time. The spline is
// carried as data for downstream consumers, never evaluated here.
type Prior struct {
	Kind PriorKind

	// gaussian
	Mean   float64
	Stddev float64
	Unit   units.Unit

	// spline
	DataPath string
	Knots    []float64
	Coeffs   []float64
	Deg      int
}

// splineEntry is the per-parameter record of a spline prior data file:
// `{"theta13_nh": {"knots": [...], "coeffs": [...], "deg": 2, "units": "deg"}}`.
type splineEntry struct {
	Knots  []float64 `json:"knots"`
	Coeffs []float64 `json:"coeffs"`
	Deg    int       `json:"deg"`
	Units  string    `json:"units"`
}

func loadSplinePrior(loader cfg.Loader, path, priorName string, unit units.Unit) (*Prior, error) {
	src, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("spline prior data %q: %w", path, err)
	}

	var file map[string]splineEntry
	if err := json.Unmarshal(src, &file); err != nil {
		return nil, fmt.Errorf("spline prior data %q: %w", path, err)
	}

	entry, ok := file[priorName]
	if !ok {
		return nil, fmt.Errorf("spline prior data %q has no entry for %q", path, priorName)
	}
	if len(entry.Knots) == 0 || len(entry.Coeffs) == 0 {
		return nil, fmt.Errorf("spline prior %q in %q has empty knots or coeffs", priorName, path)
	}
	if entry.Deg < 1 {
		return nil, fmt.Errorf("spline prior %q in %q has invalid degree %d", priorName, path, entry.Deg)
	}

	knotUnit, err := units.Parse(entry.Units)
	if err != nil {
		return nil, fmt.Errorf("spline prior %q in %q: %w", priorName, path, err)
	}

	knots := make([]float64, len(entry.Knots))
	for i, k := range entry.Knots {
		converted, err := units.Convert(k, knotUnit, unit)
		if err != nil {
			return nil, fmt.Errorf("spline prior %q in %q: %w", priorName, path, err)
		}
		knots[i] = converted
	}

	return &Prior{
		Kind:     PriorSpline,
		DataPath: path,
		Knots:    knots,
		Coeffs:   append([]float64(nil), entry.Coeffs...),
		Deg:      entry.Deg,
	}, nil
}
