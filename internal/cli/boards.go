package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/board"
	"github.com/mesh-intelligence/taskboard/internal/snapshot"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

func newBoardsCmd(flags *rootFlags) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "boards",
		Short: "List your boards, newest first",
		Long: `Boards fetches the signed-in user's boards and displays them.

Use --search to keep boards whose title or description contains the text.

Example:
  taskboard boards
  taskboard boards --search roadmap
  taskboard boards --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.requireUser(ctx); err != nil {
				return err
			}
			store := a.newStore()
			if err := store.FetchBoards(ctx); err != nil {
				return failure(err, "list boards")
			}
			boards := store.SearchBoards(search)
			if a.flags.jsonMode {
				return a.printJSON(boards)
			}
			printBoardTable(a, boards)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive text to match in title or description")
	return cmd
}

// printBoardTable prints boards in a human-readable table format.
func printBoardTable(a *app, boards []*types.Board) {
	if len(boards) == 0 {
		fmt.Fprintln(a.out, "No boards found.")
		return
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tTITLE\tDESCRIPTION\tCREATED")
	fmt.Fprintln(w, "--\t-----\t-----------\t-------")
	for _, b := range boards {
		desc := ""
		if b.Description != nil {
			desc = truncate(*b.Description, 40)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.BoardID, truncate(b.Title, 40), desc, a.formatTime(b.CreatedAt))
	}
	w.Flush()
	writeTrimmed(a, sb.String())

	fmt.Fprintf(a.out, "Total: %d board(s)\n", len(boards))
}

// writeTrimmed prints tabwriter output, trimming trailing whitespace from
// each line.
func writeTrimmed(a *app, output string) {
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		fmt.Fprintln(a.out, strings.TrimRight(line, " "))
	}
}

func newBoardCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Create, show and export boards",
	}
	cmd.AddCommand(newBoardCreateCmd(flags))
	cmd.AddCommand(newBoardShowCmd(flags))
	cmd.AddCommand(newBoardExportCmd(flags))
	return cmd
}

func newBoardCreateCmd(flags *rootFlags) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a board",
		Long: `Create a board owned by the signed-in user. Opening the board later
seeds the default lists To Do, In Progress and Done.

Example:
  taskboard board create --title "Roadmap" --description "Q3 plans"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.requireUser(ctx); err != nil {
				return err
			}
			b, err := a.newStore().CreateBoard(ctx, title, description)
			if err != nil {
				return failure(err, "create board")
			}
			if a.flags.jsonMode {
				return a.printJSON(b)
			}
			fmt.Fprintf(a.out, "Created board %s (%s)\n", b.Title, b.BoardID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "board title (required)")
	cmd.Flags().StringVar(&description, "description", "", "board description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// openBoard signs in, checks that boardID belongs to the signed-in user and
// opens it in a new store.
func openBoard(ctx context.Context, a *app, boardID string) (*board.Store, error) {
	store, err := ownedStore(ctx, a, boardID)
	if err != nil {
		return nil, err
	}
	if err := store.OpenBoard(ctx, boardID); err != nil {
		return nil, failure(err, "open board %s", boardID)
	}
	return store, nil
}

// ownedStore returns a fresh store once boardID is known to belong to the
// signed-in user.
func ownedStore(ctx context.Context, a *app, boardID string) (*board.Store, error) {
	sess, err := a.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	// Local backends do not scope rows by owner, so check before the store
	// writes lists into someone else's board.
	b, err := getEntity[*types.Board](ctx, a, types.TableBoards, boardID)
	if err != nil {
		return nil, failure(err, "open board %s", boardID)
	}
	if b.UserID != sess.User.UserID {
		return nil, failure(types.ErrNotFound, "open board %s", boardID)
	}
	return a.newStore(), nil
}

// getEntity reads one row of table directly from the backend.
func getEntity[T any](ctx context.Context, a *app, table, id string) (T, error) {
	var zero T
	t, err := a.cupboard.GetTable(table)
	if err != nil {
		return zero, err
	}
	row, err := t.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	e, ok := row.(T)
	if !ok {
		return zero, types.ErrInvalidData
	}
	return e, nil
}

// boardView is the JSON shape of board show.
type boardView struct {
	Board *types.Board `json:"board"`
	Lists []listView   `json:"lists"`
}

type listView struct {
	*types.List
	Cards []*types.Card `json:"cards"`
}

func viewOf(store *board.Store) boardView {
	v := boardView{Board: store.CurrentBoard(), Lists: []listView{}}
	for _, l := range store.Lists() {
		cards := store.CardsInList(l.ListID)
		if cards == nil {
			cards = []*types.Card{}
		}
		v.Lists = append(v.Lists, listView{List: l, Cards: cards})
	}
	return v
}

func newBoardShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <board-id>",
		Short: "Show a board with its lists and cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := openBoard(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			v := viewOf(store)
			if a.flags.jsonMode {
				return a.printJSON(v)
			}
			printBoard(a, v)
			return nil
		},
	}
}

// printBoard prints each list as a heading followed by its cards.
func printBoard(a *app, v boardView) {
	fmt.Fprintf(a.out, "%s (%s)\n", v.Board.Title, v.Board.BoardID)
	if v.Board.Description != nil && *v.Board.Description != "" {
		fmt.Fprintln(a.out, *v.Board.Description)
	}
	for _, l := range v.Lists {
		fmt.Fprintf(a.out, "\n== %s [%d] (%s)\n", l.Title, l.Position, l.ListID)
		if len(l.Cards) == 0 {
			fmt.Fprintln(a.out, "   (no cards)")
			continue
		}
		var sb strings.Builder
		w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		for _, c := range l.Cards {
			due := ""
			if c.DueDate != nil {
				due = "due " + c.DueDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "   %d\t%s\t%s\t%s\n", c.Position, truncate(c.Title, 40), due, c.CardID)
		}
		w.Flush()
		writeTrimmed(a, sb.String())
	}
}

func newBoardExportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <board-id>",
		Short: "Export a board snapshot to S3-compatible storage",
		Long: `Export writes the board, its lists and its cards as one JSON document to
the bucket configured under s3 in config.yaml, at
boards/<board-id>/<UTC timestamp>.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.settings.s3.Validate(); err != nil {
				return exitError(exitUserError, "invalid s3 config: %w", err)
			}
			ctx := cmd.Context()
			store, err := openBoard(ctx, a, args[0])
			if err != nil {
				return err
			}
			snap, err := snapshot.Capture(store, timeNow())
			if err != nil {
				return exitError(exitUserError, "%w", err)
			}

			client, err := snapshot.NewClient(ctx, a.settings.s3)
			if err != nil {
				return exitError(exitSysError, "s3 client: %w", err)
			}
			exporter := snapshot.NewExporter(client, a.settings.s3.Bucket)
			if err := exporter.EnsureBucket(ctx); err != nil {
				return exitError(exitSysError, "%w", err)
			}
			key, err := exporter.Export(ctx, snap)
			if err != nil {
				return exitError(exitSysError, "%w", err)
			}
			a.log.Debug("snapshot exported", "bucket", a.settings.s3.Bucket, "key", key)

			if a.flags.jsonMode {
				return a.printJSON(map[string]string{"bucket": a.settings.s3.Bucket, "key": key})
			}
			fmt.Fprintf(a.out, "Exported %s to s3://%s/%s\n", snap.Board.Title, a.settings.s3.Bucket, key)
			return nil
		},
	}
}
