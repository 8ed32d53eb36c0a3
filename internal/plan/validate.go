package plan

import (
	"fmt"
	"path/filepath"
)

// Validate checks a plan for missing paths and out-of-range values.
func Validate(p *Plan) []ValidationError {
	var errs []ValidationError
	src := filepath.Base(p.Path)
	if p.Path == "" {
		src = FileName
	}

	missing := func(field, value string) {
		if value == "" {
			errs = append(errs, ValidationError{
				Category:   ValCatMissingField,
				SourceFile: src,
				Field:      field,
				Err:        fmt.Errorf("%w: %s", ErrMissingField, field),
			})
		}
	}
	bounds := func(field string, ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, ValidationError{
				Category:   ValCatBoundsViolation,
				SourceFile: src,
				Field:      field,
				Err:        fmt.Errorf("%w: %s", ErrOutOfBounds, fmt.Sprintf(format, args...)),
			})
		}
	}

	missing("run.rascas_dir", p.Run.RascasDir)
	missing("run.ramses_dir", p.Run.RamsesDir)
	missing("catalog.path", p.Catalog.Path)

	r := p.Run
	bounds("run.timestep", r.Timestep >= 0, "run.timestep must be >= 0, got %d", r.Timestep)
	bounds("run.nphotons", r.NPhotons > 0, "run.nphotons must be > 0, got %d", r.NPhotons)
	bounds("run.workers", r.Workers >= 0, "run.workers must be >= 0, got %d", r.Workers)
	bounds("run.decomposition_inflation", r.DecompositionInflation == 0 || r.DecompositionInflation >= 1,
		"run.decomposition_inflation must be >= 1, got %g", r.DecompositionInflation)

	c := p.Catalog.Columns
	for _, col := range []struct {
		name string
		idx  int
	}{
		{"id", c.ID}, {"x", c.X}, {"y", c.Y}, {"z", c.Z}, {"radius", c.Radius}, {"mstar", c.Mstar},
	} {
		bounds("catalog.columns."+col.name, col.idx >= 0, "catalog.columns.%s must be >= 0, got %d", col.name, col.idx)
	}

	seen := make(map[string]bool, len(p.Bands))
	for i, b := range p.Bands {
		field := fmt.Sprintf("band[%d]", i)
		if b.Name == "" {
			missing(field+".name", b.Name)
			continue
		}
		if seen[b.Name] {
			errs = append(errs, ValidationError{
				Category:   ValCatDuplicateBand,
				SourceFile: src,
				Field:      field + ".name",
				Err:        fmt.Errorf("%w: %q", ErrDuplicateBand, b.Name),
			})
		}
		seen[b.Name] = true

		bounds(field+".lambda_angstrom", b.LambdaAngstrom > 0, "band %q: lambda_angstrom must be > 0, got %g", b.Name, b.LambdaAngstrom)
		bounds(field+".albedo", b.Albedo >= 0 && b.Albedo <= 1, "band %q: albedo must be in [0, 1], got %g", b.Name, b.Albedo)
		bounds(field+".g_dust", b.GDust >= -1 && b.GDust <= 1, "band %q: g_dust must be in [-1, 1], got %g", b.Name, b.GDust)
	}

	return errs
}
