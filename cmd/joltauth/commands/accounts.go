package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/app"
	"github.com/florianilch/jolt-auth/internal/credstore"
	"github.com/florianilch/jolt-auth/internal/scopes"
)

// accountRow is an account as the CLI prints it. Tokens are never needed.
type accountRow struct {
	Name   string
	UserID string
	Scopes []string
	Active bool
}

// accountStore is what the account commands mutate: the document directly,
// or a running server that owns it.
type accountStore interface {
	Accounts(ctx context.Context, role account.Role) ([]accountRow, error)
	SetActiveAccount(ctx context.Context, role account.Role, name string) error
	RemoveAccount(ctx context.Context, role account.Role, name string) error
	Close() error
}

// localAccounts works on the document through the session managers.
type localAccounts struct {
	app *app.App
}

var _ accountStore = (*localAccounts)(nil)

func (l *localAccounts) Accounts(_ context.Context, role account.Role) ([]accountRow, error) {
	m := l.app.Manager(role)
	active, _ := m.Active()

	var rows []accountRow
	for _, a := range m.Accounts() {
		rows = append(rows, accountRow{Name: a.Name, UserID: a.UserID, Scopes: a.Scopes, Active: a.Name == active.Name})
	}
	return rows, nil
}

func (l *localAccounts) SetActiveAccount(ctx context.Context, role account.Role, name string) error {
	return l.app.Manager(role).SetActiveAccount(ctx, name)
}

func (l *localAccounts) RemoveAccount(ctx context.Context, role account.Role, name string) error {
	return l.app.Manager(role).RemoveAccount(ctx, name)
}

func (l *localAccounts) Close() error {
	return l.app.Close()
}

// openAccounts opens the document, or falls back to the running server when
// that server holds the document lock. Mutating a second copy would be
// overwritten by the server's next save.
func openAccounts(ctx context.Context, cmd *cli.Command) (accountStore, func(), error) {
	cfg, shutdown, err := configure(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(ctx, cfg)
	switch {
	case errors.Is(err, credstore.ErrLocked):
		client := newServerClient(cfg)
		slog.DebugContext(ctx, "credentials document owned by running server", "server", client.baseURL)
		return client, shutdown, nil
	case err != nil:
		shutdown()
		return nil, nil, fmt.Errorf("failed to create app: %w", err)
	}

	return &localAccounts{app: application}, shutdown, nil
}

func roleFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "role",
		Aliases:  []string{"r"},
		Usage:    "account role (streamer|chatBot)",
		Required: true,
	}
}

func accountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "manage authorized accounts",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list a role's accounts, marking the active one",
				Flags:  []cli.Flag{roleFlag()},
				Action: accountsListAction,
			},
			{
				Name:      "use",
				Usage:     "make NAME the role's active account",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{roleFlag()},
				Action:    accountsUseAction,
			},
			{
				Name:   "whoami",
				Usage:  "ask Twitch who the role's active token belongs to",
				Flags:  []cli.Flag{roleFlag()},
				Action: accountsWhoamiAction,
			},
			{
				Name:      "remove",
				Usage:     "forget NAME's tokens",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{roleFlag()},
				Action:    accountsRemoveAction,
			},
		},
	}
}

func accountsListAction(ctx context.Context, cmd *cli.Command) error {
	role, err := account.ParseRole(cmd.String("role"))
	if err != nil {
		return err
	}

	store, shutdown, err := openAccounts(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()
	defer store.Close()

	rows, err := store.Accounts(ctx, role)
	if err != nil {
		return err
	}

	registry := scopes.NewRegistry(scopes.Defaults()...)

	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTIVE\tNAME\tUSER ID\tSCOPES")
	for _, a := range rows {
		marker := ""
		if a.Active {
			marker = "*"
		}
		sufficiency := "ok"
		if missing := registry.Missing(role, a.Scopes); len(missing) > 0 {
			sufficiency = "missing " + strings.Join(missing, " ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, a.Name, a.UserID, sufficiency)
	}
	return w.Flush()
}

func accountsUseAction(ctx context.Context, cmd *cli.Command) error {
	role, name, err := roleAndName(cmd)
	if err != nil {
		return err
	}

	store, shutdown, err := openAccounts(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()
	defer store.Close()

	if err := store.SetActiveAccount(ctx, role, name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "%s is now the active %s account\n", name, role)
	return nil
}

func accountsRemoveAction(ctx context.Context, cmd *cli.Command) error {
	role, name, err := roleAndName(cmd)
	if err != nil {
		return err
	}

	store, shutdown, err := openAccounts(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()
	defer store.Close()

	if err := store.RemoveAccount(ctx, role, name); err != nil {
		return err
	}

	rows, err := store.Accounts(ctx, role)
	if err != nil {
		return err
	}
	for _, a := range rows {
		if a.Active {
			fmt.Fprintf(cmd.Root().Writer, "removed %s, active %s account is %s\n", name, role, a.Name)
			return nil
		}
	}
	fmt.Fprintf(cmd.Root().Writer, "removed %s, no active %s account\n", name, role)
	return nil
}

func accountsWhoamiAction(ctx context.Context, cmd *cli.Command) error {
	role, err := account.ParseRole(cmd.String("role"))
	if err != nil {
		return err
	}

	application, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	user, err := application.Client(role).Me(ctx)
	if err != nil {
		return fmt.Errorf("looking up active %s account: %w", role, err)
	}
	fmt.Fprintf(cmd.Root().Writer, "%s (%s)\n", user.Login, user.ID)
	return nil
}

func roleAndName(cmd *cli.Command) (account.Role, string, error) {
	role, err := account.ParseRole(cmd.String("role"))
	if err != nil {
		return 0, "", err
	}
	name := cmd.Args().First()
	if name == "" {
		return 0, "", errors.New("account name required")
	}
	return role, name, nil
}
