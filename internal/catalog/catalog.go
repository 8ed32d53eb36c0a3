// Package catalog holds the halo records read from a halo-finder catalogue
// and the stellar-mass selection applied before a run.
package catalog

import "errors"

// ErrCatalogEmpty reports that no halo passed the selection threshold.
// It is advisory: callers log it and carry on with zero halos.
var ErrCatalogEmpty = errors.New("no halo above stellar mass threshold")

// Vec3 is a position in simulation code units.
type Vec3 [3]float64

// Halo is one catalogue entry. Positions and radii are in code units.
type Halo struct {
	ID     int64
	Pos    Vec3
	Radius float64
	Mstar  float64
}

// Select returns the halos whose stellar mass strictly exceeds threshold,
// in catalogue order. The input slice is not modified.
func Select(halos []Halo, threshold float64) []Halo {
	out := make([]Halo, 0, len(halos))
	for _, h := range halos {
		if h.Mstar > threshold {
			out = append(out, h)
		}
	}
	return out
}

// IDs returns the identifiers of halos in order.
func IDs(halos []Halo) []int64 {
	ids := make([]int64, len(halos))
	for i, h := range halos {
		ids[i] = h.ID
	}
	return ids
}
