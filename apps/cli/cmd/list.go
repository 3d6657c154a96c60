package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [patterns...]",
	Short: "List the blocks of .http documents",
	Long: `List every block with its location, id and needs. Imported files
are listed before the files that import them.

Examples:
  hitrun list
  hitrun list api/`,
	ValidArgsFunction: completeHTTPFiles,
	RunE:              listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	plan, err := loadPlan(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range plan.Files {
		fmt.Fprintf(out, "\n%s:\n", f.Name())
		for _, b := range f.Blocks {
			var tags []string
			if b.Meta.ID != "" {
				tags = append(tags, "id="+b.Meta.ID)
			}
			if len(b.Meta.Needs) > 0 {
				tags = append(tags, "needs="+strings.Join(b.Meta.Needs, ","))
			}
			if b.Meta.Ignore {
				tags = append(tags, "ignored")
			}
			if b.Meta.Only {
				tags = append(tags, "only")
			}
			if !b.HasRequest() {
				tags = append(tags, "no request")
			}

			line := fmt.Sprintf("  - %s  %s", b.Location(), b.Description())
			if len(tags) > 0 {
				line += "  [" + strings.Join(tags, " ") + "]"
			}
			fmt.Fprintln(out, line)
		}
	}

	if plan.OnlyMode {
		fmt.Fprintln(out, "\nonly mode: blocks without only (or needed by one) are ignored")
	}
	return nil
}
