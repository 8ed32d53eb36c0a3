package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/ui"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "List the halos a run would dispatch",
	RunE:  runSelect,
}

func init() {
	selectCmd.Flags().Float64("threshold", 0, "override the plan's stellar mass threshold")
	selectCmd.Flags().Bool("ids", false, "print only halo IDs")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	p, err := s.loadPlan()
	if err != nil {
		return err
	}
	threshold := p.Run.MstarThreshold
	if f := cmd.Flags().Lookup("threshold"); f != nil && f.Changed {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}

	halos, err := catalog.Load(p.Catalog.Path, p.CatalogColumns())
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}
	selected := catalog.Select(halos, threshold)
	if len(selected) == 0 {
		s.printer.EmptySelection(threshold)
		return nil
	}

	idsOnly, _ := cmd.Flags().GetBool("ids")
	printSelection(cmd.OutOrStdout(), selected, idsOnly)
	return nil
}

// printSelection writes one line per halo: ID, Mstar in solar masses,
// position and radius in code units.
func printSelection(w io.Writer, halos []catalog.Halo, idsOnly bool) {
	if idsOnly {
		for _, h := range halos {
			fmt.Fprintln(w, h.ID)
		}
		return
	}
	fmt.Fprintf(w, "%-10s %-16s %-12s %-12s %-12s %s\n", "ID", "MSTAR", "X", "Y", "Z", "RVIR")
	for _, h := range halos {
		fmt.Fprintf(w, "%-10d %-16.8e %-12g %-12g %-12g %g\n", h.ID, h.Mstar*ui.MassUnit, h.Pos[0], h.Pos[1], h.Pos[2], h.Radius)
	}
}
