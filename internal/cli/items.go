package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/happi/pkg/client"
)

func newSearchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search [key=value ...]",
		Short: "Search items by field values",
		Long: "List the items matching every condition. Values are JSON literals or\n" +
			"plain strings; key=a|b matches any listed value, key=lo..hi an inclusive\n" +
			"numeric range and key=~regex a full regular expression match.",
		Example: "  happi search beamline=LCLS z=300..400\n  happi search name=~'sam_.*'",
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(args)
			if err != nil {
				return err
			}
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			var items []*client.Item
			for item, err := range env.client.Search(cmd.Context(), q) {
				if err != nil {
					return err
				}
				items = append(items, item)
			}
			if len(items) == 0 && !flags.jsonMode {
				fmt.Fprintln(cmd.ErrOrStderr(), "No items found")
				return nil
			}
			return printItems(cmd.OutOrStdout(), items, flags.jsonMode)
		}),
	}
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			item, err := env.client.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd.OutOrStdout(), item.Record, flags.jsonMode)
		}),
	}
}

func newAddCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "add <type> key=value ...",
		Short:   "Add a new item",
		Example: "  happi add OphydItem name=sam_x prefix=TST:MMS:01 device_class=ophyd.EpicsMotor z=400",
		Args:    cobra.MinimumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			item, err := env.client.Create(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), item.Record)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", item.ID())
			return nil
		}),
	}
}

func newEditCmd(flags *rootFlags) *cobra.Command {
	var unset []string
	cmd := &cobra.Command{
		Use:     "edit <id> [key=value ...]",
		Short:   "Change fields of an item",
		Example: "  happi edit sam_x z=410 --unset documentation",
		Args:    cobra.MinimumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			if len(fields) == 0 && len(unset) == 0 {
				return userError("nothing to change")
			}
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			item, err := env.client.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for k, v := range fields {
				item.Set(k, v)
			}
			for _, k := range unset {
				delete(item.Record, k)
			}
			if err := env.client.Save(cmd.Context(), item); err != nil {
				return err
			}
			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), item.Record)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", item.ID())
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&unset, "unset", nil, "remove the named fields")
	return cmd
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id> ...",
		Short: "Delete items",
		Args:  cobra.MinimumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			for _, id := range args {
				if err := env.client.Backend().Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		}),
	}
}

func newAuditCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Validate every stored item",
		Long:  "Check every stored record against its schema and report the failures.\nExits 1 when any record is invalid.",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			bad, err := env.client.Audit(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(bad))
			for id := range bad {
				ids = append(ids, id)
			}
			slices.Sort(ids)
			if flags.jsonMode {
				report := make(map[string]string, len(bad))
				for id, err := range bad {
					report[id] = err.Error()
				}
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", id, bad[id])
				}
			}
			if len(bad) > 0 {
				return userError("%d invalid items", len(bad))
			}
			if !flags.jsonMode {
				fmt.Fprintln(cmd.OutOrStdout(), "All items valid")
			}
			return nil
		}),
	}
}

func newTransferCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <id> <type>",
		Short: "Move an item to another registered type",
		Long:  "Re-validate an item against another registered type and store it under\nthe same id. Nothing changes when the item does not fit the new type.",
		Args:  cobra.ExactArgs(2),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			env, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			item, err := env.client.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			from := item.Type
			item.Type = args[1]
			if err := env.client.Save(cmd.Context(), item); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transferred %s from %s to %s\n", item.ID(), from, item.Type)
			return nil
		}),
	}
}
