package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/miseq/internal/config"
	"github.com/Iron-Ham/miseq/internal/dispatch"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print the task tree",
	Long: `Print the mise tasks of the project in navigation order, indented by
namespace. Groups end with a slash.`,
	RunE: runList,
}

var listRefs bool

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listRefs, "names", false, "show the mise task name next to each task")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.start(cmd.Context()); err != nil {
		return err
	}

	snap := rt.dispatcher.Snapshot()
	if len(snap.Items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No mise tasks found.")
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTree(snap.Items, listRefs))
	return nil
}

// renderTree formats items as an indented tree, one per line.
func renderTree(items []dispatch.Item, showNames bool) string {
	var sb strings.Builder
	for _, it := range items {
		sb.WriteString(strings.Repeat("  ", max(it.Depth-1, 0)))
		sb.WriteString(it.Name)
		if !it.IsTask() {
			sb.WriteString("/")
		} else if showNames && it.Ref != it.Path.String() {
			sb.WriteString("  (" + it.Ref + ")")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
