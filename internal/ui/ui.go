// Package ui provides stderr-based progress output for haloprep.
package ui

import (
	"fmt"
	"os"

	"github.com/papapumpkin/haloprep/internal/catalog"
)

// ANSI color codes.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	yellow = "\033[33m"
	green  = "\033[32m"
	red    = "\033[31m"
	cyan   = "\033[36m"
)

// MassUnit converts catalogue stellar masses to solar masses for display.
const MassUnit = 1e11

// UI receives progress notifications from a run.
type UI interface {
	HaloStart(index, total int, h catalog.Halo)
	SurveyStart(name string)
	EmptySelection(threshold float64)
	RunSummary(processed int, manifestPath string)
	Error(msg string)
	Info(msg string)
}

// Printer writes coloured progress lines to stderr.
type Printer struct{}

func New() *Printer {
	return &Printer{}
}

var _ UI = (*Printer)(nil)

func (p *Printer) HaloStart(index, total int, h catalog.Halo) {
	fmt.Fprintf(os.Stderr, "\n"+bold+cyan+"── halo %d"+reset+dim+" (%d/%d)"+reset+"\n", h.ID, index+1, total)
	fmt.Fprintf(os.Stderr, "  Mstar       = %.8e\n", h.Mstar*MassUnit)
	fmt.Fprintf(os.Stderr, "  coordinates = %g %g %g\n", h.Pos[0], h.Pos[1], h.Pos[2])
	fmt.Fprintf(os.Stderr, "  Rvir        = %g\n", h.Radius)
}

func (p *Printer) SurveyStart(name string) {
	fmt.Fprintf(os.Stderr, "  "+cyan+"--->"+reset+" %s\n", name)
}

func (p *Printer) EmptySelection(threshold float64) {
	fmt.Fprintf(os.Stderr, yellow+bold+"⚠ no halo above Mstar %g"+reset+" — nothing to dispatch\n", threshold)
}

func (p *Printer) RunSummary(processed int, manifestPath string) {
	fmt.Fprintf(os.Stderr, "\n"+green+bold+"✓ %d halo(s) prepared"+reset+dim+" — manifest %s"+reset+"\n", processed, manifestPath)
}

func (p *Printer) CleanSummary(removed, failed int) {
	if failed == 0 {
		fmt.Fprintf(os.Stderr, green+bold+"✓ removed %d file(s)"+reset+"\n", removed)
		return
	}
	fmt.Fprintf(os.Stderr, red+bold+"✗ removed %d file(s), %d failed"+reset+"\n", removed, failed)
}

func (p *Printer) ValidateResult(path string, bands int, errs []string) {
	if len(errs) == 0 {
		fmt.Fprintf(os.Stderr, green+bold+"✓ plan %s"+reset+" — %d band(s), no errors\n", path, bands)
		return
	}
	fmt.Fprintf(os.Stderr, red+bold+"✗ plan %s"+reset+" — %d error(s):\n", path, len(errs))
	for _, e := range errs {
		fmt.Fprintf(os.Stderr, "  "+red+"• "+reset+"%s\n", e)
	}
}

func (p *Printer) Error(msg string) {
	fmt.Fprintf(os.Stderr, red+bold+"error: "+reset+"%s\n", msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintf(os.Stderr, dim+"%s"+reset+"\n", msg)
}
