package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/taskboard/internal/auth"
	"github.com/mesh-intelligence/taskboard/pkg/types"
)

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email address (required)")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
}

// resolvePassword returns the --password value or the first line of in.
func (f *credentialFlags) resolvePassword(in io.Reader) (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", exitError(exitSysError, "read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", exitError(exitUserError, "password is required")
	}
	return line, nil
}

func newSignUpCmd(flags *rootFlags) *cobra.Command {
	var f credentialFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentials(cmd, flags, &f, (*auth.Gate).SignUp)
		},
	}
	f.bind(cmd)
	return cmd
}

func newSignInCmd(flags *rootFlags) *cobra.Command {
	var f credentialFlags
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Long: `Sign in and save the session token in the config directory.

Example:
  taskboard signin --email ann@example.com --password secret1
  echo secret1 | taskboard signin --email ann@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCredentials(cmd, flags, &f, (*auth.Gate).SignIn)
		},
	}
	f.bind(cmd)
	return cmd
}

func runCredentials(cmd *cobra.Command, flags *rootFlags, f *credentialFlags,
	fn func(*auth.Gate, context.Context, string, string) error,
) error {
	password, err := f.resolvePassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	a, err := openApp(cmd, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	gate := auth.New(a.session)
	defer gate.Close()
	if err := gate.Initialize(ctx); err != nil {
		a.log.Debug("no usable stored session", "error", err)
	}
	if err := fn(gate, ctx, f.email, password); err != nil {
		// The session client already names the operation.
		return &exitCodeError{code: exitCodeFor(err), err: err}
	}
	return printUser(a, gate)
}

func newSignOutCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			gate := auth.New(a.session)
			defer gate.Close()
			if err := gate.Initialize(ctx); err != nil {
				return failure(err, "sign out")
			}
			if gate.State() != auth.Authenticated {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			if err := gate.SignOut(ctx); err != nil {
				// The local session is gone either way.
				a.log.Warn("revoking session", "error", err)
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoAmICmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			gate := auth.New(a.session)
			defer gate.Close()
			if err := gate.Initialize(cmd.Context()); err != nil {
				return failure(err, "whoami")
			}
			if gate.State() != auth.Authenticated {
				return exitError(exitUserError, "not signed in")
			}
			return printUser(a, gate)
		},
	}
}

func printUser(a *app, gate *auth.Gate) error {
	u := gate.User()
	if u == nil {
		return exitError(exitUserError, "%w", types.ErrNotAuthenticated)
	}
	if a.flags.jsonMode {
		return a.printJSON(u)
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", u.Email, u.UserID)
	return nil
}
