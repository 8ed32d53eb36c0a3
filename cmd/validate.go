package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/haloprep/internal/plan"
)

var validateCmd = &cobra.Command{
	Use:   "validate [plan]",
	Short: "Validate a run plan file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	path := s.cfg.Plan
	if len(args) == 1 {
		path = args[0]
	}

	p, err := plan.Load(path)
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}

	errs := plan.Validate(p)
	s.printer.ValidateResult(path, len(p.Bands), validationMessages(errs))
	if len(errs) > 0 {
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}
	return nil
}
