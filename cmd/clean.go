package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papapumpkin/haloprep/internal/cleanup"
	"github.com/papapumpkin/haloprep/internal/manifest"
	"github.com/papapumpkin/haloprep/internal/plan"
	"github.com/papapumpkin/haloprep/internal/survey"
	"github.com/papapumpkin/haloprep/internal/telemetry"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale RASCAS outputs from per-halo survey directories",
	Long: `Removes files matching the clean pattern (default 00*RASCAS*) inside
{rascas_dir}/{timestep}/halo{id}/{subdir}/ for each listed halo.

Halo IDs come from --ids, then --from-manifest, then [clean].halo_ids in the plan.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().Int64Slice("ids", nil, "halo IDs to clean")
	cleanCmd.Flags().Bool("from-manifest", false, "clean the halos listed in the run manifest")
	cleanCmd.Flags().String("subdir", "", "survey subdirectory (default from plan, else 1500A_rf)")
	cleanCmd.Flags().String("pattern", "", "file glob (default from plan, else 00*RASCAS*)")
	cleanCmd.Flags().Bool("dry-run", false, "list matching files without removing them")
	cleanCmd.Flags().Bool("no-telemetry", false, "do not record a JSONL telemetry file")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	p, err := plan.Load(s.cfg.Plan)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}
	if p.Run.RascasDir == "" {
		err := fmt.Errorf("%w: run.rascas_dir", plan.ErrMissingField)
		s.printer.Error(err.Error())
		return err
	}

	flagIDs, _ := cmd.Flags().GetInt64Slice("ids")
	fromManifest, _ := cmd.Flags().GetBool("from-manifest")
	ids, err := cleanIDs(flagIDs, fromManifest, p)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}

	tgt := cleanup.Target{
		Base:    survey.TimestepDir(p.Run.RascasDir, p.Run.Timestep),
		HaloIDs: ids,
		Subdir:  p.Clean.Subdir,
		Pattern: p.Clean.Pattern,
	}
	if v, _ := cmd.Flags().GetString("subdir"); v != "" {
		tgt.Subdir = v
	}
	if v, _ := cmd.Flags().GetString("pattern"); v != "" {
		tgt.Pattern = v
	}
	tgt.DryRun, _ = cmd.Flags().GetBool("dry-run")

	results, err := cleanup.Clean(tgt)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}

	em, err := openTelemetry(cmd, s)
	if err != nil {
		return err
	}
	defer em.Close()

	out := cmd.OutOrStdout()
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.logger.Warn("remove failed", zap.Int64("halo", r.HaloID), zap.String("path", r.Path), zap.Error(r.Err))
		case tgt.DryRun:
			fmt.Fprintf(out, "would remove %s\n", r.Path)
		default:
			fmt.Fprintf(out, "removed %s\n", r.Path)
			_ = em.Emit(telemetry.Event{Kind: telemetry.KindCleanRemoved, HaloID: telemetry.Halo(r.HaloID), Data: map[string]any{"path": r.Path}})
		}
	}

	failed := cleanup.Failed(results)
	if !tgt.DryRun {
		s.printer.CleanSummary(len(results)-failed, failed)
	}
	if failed > 0 {
		return fmt.Errorf("clean: %d file(s) could not be removed", failed)
	}
	return nil
}

// cleanIDs resolves which halos to clean.
func cleanIDs(flagIDs []int64, fromManifest bool, p *plan.Plan) ([]int64, error) {
	if len(flagIDs) > 0 {
		return flagIDs, nil
	}
	if fromManifest {
		return manifest.Read(manifest.Path(p.Run.RascasDir, p.Run.Timestep))
	}
	if len(p.Clean.HaloIDs) > 0 {
		return p.Clean.HaloIDs, nil
	}
	return nil, fmt.Errorf("clean: no halo IDs given (use --ids, --from-manifest or [clean].halo_ids)")
}
