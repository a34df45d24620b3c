package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adt-dev/adt/internal/apperr"
	"github.com/adt-dev/adt/internal/branding"
	"github.com/adt-dev/adt/internal/updater"
	"github.com/spf13/cobra"
)

const checkTimeout = 10 * time.Second

func (a *app) versionCmd() *cobra.Command {
	var short, asJSON, check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short && asJSON {
				return apperr.Usagef("--short and --json cannot be combined")
			}
			w := cmd.OutOrStdout()

			var latest *updater.Result
			if check {
				ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
				defer cancel()
				res, err := a.checker.Check(ctx, a.build.Version)
				if err != nil {
					return apperr.Environmentf("version check failed: %v", err)
				}
				latest = res
			}

			switch {
			case short:
				fmt.Fprintln(w, a.build.Version)
			case asJSON:
				out := struct {
					buildInfo
					Latest *updater.Result `json:"latest,omitempty"`
				}{a.build, latest}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling version info: %w", err)
				}
				fmt.Fprintln(w, string(data))
				return nil
			default:
				fmt.Fprintf(w, "%s version %s (commit: %s, built: %s)\n",
					branding.CLIName(), a.build.Version, a.build.Commit, a.build.Date)
			}
			if latest != nil {
				updater.PrintResult(w, latest)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print the version number only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version info as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "compare with the latest GitHub release")
	return cmd
}
