// Package units maintains the registry of unit tags that may appear in
// configuration values as `units.<tag>`, and performs conversions between
// compatible units.
//
// The registry is deliberately small: it covers the tags used by the
// oscillation parameter tables (angles, mass splittings, lengths) and can be
// extended at startup via Register.
package units

import (
	"fmt"
	"math"
	"sync"
)

// Unit is a recognized unit tag, e.g. "deg" or "eV**2".
type Unit string

// Dimensionless is the implicit unit of bare numeric values.
const Dimensionless Unit = "dimensionless"

// UnknownUnitError reports a `units.<tag>` suffix whose tag is not in the
// registry.
type UnknownUnitError struct {
	Name string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unknown unit %q", e.Name)
}

// entry describes a registered unit: the dimension it measures and its scale
// factor relative to the dimension's base unit.
type entry struct {
	dimension string
	factor    float64
}

var (
	mu       sync.RWMutex
	registry = map[Unit]entry{
		Dimensionless: {dimension: "dimensionless", factor: 1},
		"deg":         {dimension: "angle", factor: math.Pi / 180},
		"rad":         {dimension: "angle", factor: 1},
		"eV**2":       {dimension: "mass_splitting", factor: 1},
		"meter":       {dimension: "length", factor: 1},
		"km":          {dimension: "length", factor: 1e3},
		"GeV":         {dimension: "energy", factor: 1},
		"MeV":         {dimension: "energy", factor: 1e-3},
	}
)

// Register adds a unit tag to the registry. The factor is relative to the
// base unit of the given dimension. Registering an existing tag overwrites
// its previous definition.
func Register(name Unit, dimension string, factor float64) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = entry{dimension: dimension, factor: factor}
}

// Parse validates a unit tag against the registry.
func Parse(name string) (Unit, error) {
	mu.RLock()
	defer mu.RUnlock()
	u := Unit(name)
	if _, ok := registry[u]; !ok {
		return "", &UnknownUnitError{Name: name}
	}
	return u, nil
}

// Convert rescales a value from one unit to another. Both units must be
// registered and measure the same dimension.
func Convert(v float64, from, to Unit) (float64, error) {
	if from == to {
		return v, nil
	}

	mu.RLock()
	defer mu.RUnlock()

	fromEntry, ok := registry[from]
	if !ok {
		return 0, &UnknownUnitError{Name: string(from)}
	}
	toEntry, ok := registry[to]
	if !ok {
		return 0, &UnknownUnitError{Name: string(to)}
	}
	if fromEntry.dimension != toEntry.dimension {
		return 0, fmt.Errorf("cannot convert %s to %s: incompatible dimensions (%s vs %s)",
			from, to, fromEntry.dimension, toEntry.dimension)
	}

	return v * fromEntry.factor / toEntry.factor, nil
}
