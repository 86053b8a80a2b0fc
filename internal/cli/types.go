package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/happi/pkg/schema"
)

// fieldInfo is the JSON shape of one schema field.
type fieldInfo struct {
	Name     string `json:"name"`
	Enforce  string `json:"enforce"`
	Optional bool   `json:"optional"`
	Default  any    `json:"default"`
	Doc      string `json:"doc,omitempty"`
}

func describe(s *schema.Schema) []fieldInfo {
	fields := s.Fields()
	out := make([]fieldInfo, len(fields))
	for i, f := range fields {
		out[i] = fieldInfo{
			Name:     f.Name,
			Enforce:  f.Enforce.String(),
			Optional: f.Optional,
			Default:  f.CoerceDefault(),
			Doc:      f.Doc,
		}
	}
	return out
}

func newTypesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types [type]",
		Short: "List registered item types and their fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			reg := schema.NewBuiltinRegistry()
			names := reg.Types()
			if len(args) == 1 {
				names = args
			}

			described := make(map[string][]fieldInfo, len(names))
			for _, name := range names {
				s, err := reg.Resolve(name)
				if err != nil {
					return err
				}
				described[name] = describe(s)
			}
			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), described)
			}

			w := cmd.OutOrStdout()
			for i, name := range names {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintln(w, name)
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, f := range described[name] {
					req := "required"
					if f.Optional {
						req = "optional"
					}
					if f.Default != nil {
						req = "default " + formatValue(f.Default)
					}
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Name, f.Enforce, req)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}
