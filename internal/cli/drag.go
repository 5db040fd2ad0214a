package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/dnd"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

type dragFlags struct {
	toList string
	toCard string
	dx, dy float64
}

func newCardDragCmd(flags *rootFlags) *cobra.Command {
	var f dragFlags
	cmd := &cobra.Command{
		Use:   "drag <card-id>",
		Short: "Drop a card onto a list or card with the drag rules",
		Long: `Drag lifts a card and drops it the way the board does with a pointer:

  - dropped on another list, the card goes to the end of that list;
  - dropped on a card in another list, it takes that card's list and position;
  - anything else leaves the card where it is.

Name the drop target with --to-list or --to-card, or give a pointer
offset in pixels with --dx and --dy to drop on whatever surface lies
nearest on the default board layout.

Example:
  taskboard card drag 0195f3a2-... --to-list 0195f3a3-...
  taskboard card drag 0195f3a2-... --dx 312`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCardDrag(cmd, flags, f, args[0])
		},
	}
	cmd.Flags().StringVar(&f.toList, "to-list", "", "drop onto this list")
	cmd.Flags().StringVar(&f.toCard, "to-card", "", "drop onto this card")
	cmd.Flags().Float64Var(&f.dx, "dx", 0, "horizontal pointer travel in pixels")
	cmd.Flags().Float64Var(&f.dy, "dy", 0, "vertical pointer travel in pixels")
	cmd.MarkFlagsMutuallyExclusive("to-list", "to-card")
	cmd.MarkFlagsMutuallyExclusive("to-list", "dx")
	cmd.MarkFlagsMutuallyExclusive("to-list", "dy")
	cmd.MarkFlagsMutuallyExclusive("to-card", "dx")
	cmd.MarkFlagsMutuallyExclusive("to-card", "dy")
	return cmd
}

func runCardDrag(cmd *cobra.Command, flags *rootFlags, f dragFlags, cardID string) error {
	pointer := cmd.Flags().Changed("dx") || cmd.Flags().Changed("dy")
	if f.toList == "" && f.toCard == "" && !pointer {
		return exitError(exitUserError, "give --to-list, --to-card or a pointer offset with --dx/--dy")
	}

	a, err := openApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	store, err := openBoardOfCard(ctx, a, cardID)
	if err != nil {
		return err
	}
	co := dnd.New(store, dnd.WithLogger(a.log))

	var moved *types.Card
	if pointer {
		droppables := dnd.Layout(store, dnd.DefaultGeometry)
		rect, ok := dnd.Find(droppables, dnd.Target{Kind: dnd.KindCard, ID: cardID})
		if !ok {
			return failure(types.ErrNotFound, "drag card %s", cardID)
		}
		start := rect.Center()
		end := dnd.Point{X: start.X + f.dx, Y: start.Y + f.dy}
		co.PointerDown(cardID, start, rect)
		if co.PointerMove(end) != dnd.Lifted {
			co.Cancel()
			if a.flags.jsonMode {
				return a.printJSON(map[string]any{"moved": false})
			}
			fmt.Fprintln(a.out, "Pointer travel below the activation distance; nothing moved.")
			return nil
		}
		moved, err = co.PointerUp(ctx, end, droppables)
	} else {
		target := &dnd.Target{Kind: dnd.KindList, ID: f.toList}
		if f.toCard != "" {
			target = &dnd.Target{Kind: dnd.KindCard, ID: f.toCard}
		}
		if err := co.Lift(cardID); err != nil {
			return exitError(exitSysError, "%w", err)
		}
		moved, err = co.DropOnto(ctx, target)
	}
	if err != nil {
		return failure(err, "drag card")
	}

	if moved == nil {
		if a.flags.jsonMode {
			return a.printJSON(map[string]any{"moved": false})
		}
		fmt.Fprintln(a.out, "Card stays where it is.")
		return nil
	}
	return printCard(a, "Moved", moved)
}
