package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/happi/pkg/backends"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.jsonl>",
		Short: "Write every stored record to a JSON lines file",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			n, err := backends.ExportJSONL(cmd.Context(), env.client.Backend(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, args[0])
			return nil
		}),
	}
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Insert the records of a JSON lines file",
		Long:  "Insert every record of a JSON lines file as stored, without validation.\nRun audit afterwards to check the imported records.",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			n, err := backends.ImportJSONL(cmd.Context(), env.client.Backend(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records from %s\n", n, args[0])
			return nil
		}),
	}
}
