package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage the lists of a board",
	}
	cmd.AddCommand(newListCreateCmd(flags))
	return cmd
}

func newListCreateCmd(flags *rootFlags) *cobra.Command {
	var (
		title    string
		position int
	)
	cmd := &cobra.Command{
		Use:   "create <board-id>",
		Short: "Add a list to a board",
		Long: `Add a list to a board. Without --position the list goes after the
existing lists. An empty board is not seeded with the default lists.

Example:
  taskboard list create 0195f3a2-... --title Review`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			// An empty board stays unseeded.
			store, err := ownedStore(ctx, a, args[0])
			if err != nil {
				return err
			}
			if err := store.LoadBoard(ctx, args[0]); err != nil {
				return failure(err, "open board %s", args[0])
			}
			if !cmd.Flags().Changed("position") {
				position = len(store.Lists())
			}
			l, err := store.CreateList(ctx, title, args[0], position)
			if err != nil {
				return failure(err, "create list")
			}
			if a.flags.jsonMode {
				return a.printJSON(l)
			}
			fmt.Fprintf(a.out, "Created list %s at position %d (%s)\n", l.Title, l.Position, l.ListID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "list title (required)")
	cmd.Flags().IntVar(&position, "position", 0, "list position (default: after the last list)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}
