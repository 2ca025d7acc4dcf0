package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/alertgate/internal/report"
	"github.com/felixgeelhaar/alertgate/internal/version"
)

func newVersionCommand(o options) *cobra.Command {
	var (
		verbose bool
		asJSON  bool
	)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			if asJSON {
				if err := report.WriteJSON(o.stdout, info); err != nil {
					return fmt.Errorf("failed to marshal version info: %w", err)
				}
				return nil
			}

			if verbose {
				fmt.Fprintln(o.stdout, info.String())
				return nil
			}

			fmt.Fprintf(o.stdout, "alertgate %s\n", info.Short())
			return nil
		},
	}

	versionCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed version information")
	versionCmd.Flags().BoolVar(&asJSON, "json", false, "output version information as JSON")

	return versionCmd
}
