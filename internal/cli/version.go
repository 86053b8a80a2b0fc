package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release of the happi command.
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/happi"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the happi version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "happi v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
