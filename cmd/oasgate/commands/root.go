package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/erraggy/oasgate"
)

// NewRootCommand builds the oasgate command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "oasgate",
		Short: "OpenAPI validation middleware and reverse proxy",
		Long: `oasgate validates HTTP requests against an OpenAPI 2.0 or 3.x declaration
before they reach your API. Run it as a reverse proxy with "oasgate serve" or
embed the middleware package in a Go server.`,
		Version:       oasgate.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(newServeCommand(), newRoutesCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the oasgate version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), oasgate.BuildInfo())
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "oasgate %s\n", oasgate.Version())
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print commit, build time and Go version")
	return cmd
}
