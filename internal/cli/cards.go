package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/board"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func newCardCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Create, edit, move and delete cards",
	}
	cmd.AddCommand(newCardCreateCmd(flags))
	cmd.AddCommand(newCardEditCmd(flags))
	cmd.AddCommand(newCardDeleteCmd(flags))
	cmd.AddCommand(newCardMoveCmd(flags))
	cmd.AddCommand(newCardDragCmd(flags))
	return cmd
}

// parseDue accepts a calendar date or an RFC 3339 timestamp. The empty
// string yields the zero time, which clears a due date on edit.
func parseDue(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, exitError(exitUserError, "invalid due date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// openBoardOfList opens the board holding listID.
func openBoardOfList(ctx context.Context, a *app, listID string) (*board.Store, error) {
	l, err := getEntity[*types.List](ctx, a, types.TableLists, listID)
	if err != nil {
		return nil, failure(err, "find list %s", listID)
	}
	return openBoard(ctx, a, l.BoardID)
}

// openBoardOfCard opens the board holding cardID.
func openBoardOfCard(ctx context.Context, a *app, cardID string) (*board.Store, error) {
	c, err := getEntity[*types.Card](ctx, a, types.TableCards, cardID)
	if err != nil {
		return nil, failure(err, "find card %s", cardID)
	}
	return openBoardOfList(ctx, a, c.ListID)
}

func printCard(a *app, verb string, c *types.Card) error {
	if a.flags.jsonMode {
		return a.printJSON(c)
	}
	fmt.Fprintf(a.out, "%s card %s at position %d of list %s (%s)\n", verb, c.Title, c.Position, c.ListID, c.CardID)
	return nil
}

func newCardCreateCmd(flags *rootFlags) *cobra.Command {
	var (
		n   types.NewCard
		due string
	)
	cmd := &cobra.Command{
		Use:   "create <list-id>",
		Short: "Add a card to a list",
		Long: `Add a card to a list. Without --position the card goes after the cards
already in the list.

Example:
  taskboard card create 0195f3a2-... --title "Write docs" --due 2025-07-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseDue(due)
			if err != nil {
				return err
			}
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			store, err := openBoardOfList(ctx, a, args[0])
			if err != nil {
				return err
			}
			n.ListID = args[0]
			if !cmd.Flags().Changed("position") {
				n.Position = len(store.CardsInList(n.ListID))
			}
			if !dueDate.IsZero() {
				n.DueDate = &dueDate
			}
			c, err := store.CreateCard(ctx, n)
			if err != nil {
				return failure(err, "create card")
			}
			return printCard(a, "Created", c)
		},
	}
	cmd.Flags().StringVar(&n.Title, "title", "", "card title (required)")
	cmd.Flags().StringVar(&n.Description, "description", "", "card description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().IntVar(&n.Position, "position", 0, "card position (default: after the last card)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newCardEditCmd(flags *rootFlags) *cobra.Command {
	var title, description, due string
	cmd := &cobra.Command{
		Use:   "edit <card-id>",
		Short: "Change the title, description or due date of a card",
		Long: `Edit changes only the fields given. An empty --description or --due
clears the stored value.

Example:
  taskboard card edit 0195f3a2-... --title "Write more docs"
  taskboard card edit 0195f3a2-... --due ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u types.CardUpdate
			if cmd.Flags().Changed("title") {
				u.Title = &title
			}
			if cmd.Flags().Changed("description") {
				u.Description = &description
			}
			if cmd.Flags().Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				u.DueDate = &d
			}
			if u.Title == nil && u.Description == nil && u.DueDate == nil {
				return exitError(exitUserError, "nothing to change: give --title, --description or --due")
			}

			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			store, err := openBoardOfCard(ctx, a, args[0])
			if err != nil {
				return err
			}
			c, err := store.UpdateCard(ctx, args[0], u)
			if err != nil {
				return failure(err, "edit card")
			}
			return printCard(a, "Updated", c)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD or RFC 3339)")
	return cmd
}

func newCardDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <card-id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			store, err := openBoardOfCard(ctx, a, args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteCard(ctx, args[0]); err != nil {
				return failure(err, "delete card")
			}
			if a.flags.jsonMode {
				return a.printJSON(map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(a.out, "Deleted card %s\n", args[0])
			return nil
		},
	}
}

func newCardMoveCmd(flags *rootFlags) *cobra.Command {
	var (
		listID   string
		position int
	)
	cmd := &cobra.Command{
		Use:   "move <card-id>",
		Short: "Move a card to a list and position",
		Long: `Move sets the list and position of a card. Other cards keep their
positions. Without --position the card goes after the cards in the list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			store, err := openBoardOfCard(ctx, a, args[0])
			if err != nil {
				return err
			}
			if _, ok := store.List(listID); !ok {
				return failure(types.ErrInvalidReference, "move card: list %s is not on this board", listID)
			}
			if !cmd.Flags().Changed("position") {
				position = len(store.CardsInList(listID))
			}
			c, err := store.MoveCard(ctx, args[0], listID, position)
			if err != nil {
				return failure(err, "move card")
			}
			return printCard(a, "Moved", c)
		},
	}
	cmd.Flags().StringVar(&listID, "list", "", "destination list id (required)")
	cmd.Flags().IntVar(&position, "position", 0, "position in the destination list")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}
