package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/scopes"
)

func scopesCommand() *cli.Command {
	return &cli.Command{
		Name:  "scopes",
		Usage: "print the scope string a role must grant",
		Flags: []cli.Flag{
			roleFlag(),
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "list the operations that need each scope",
			},
		},
		Action: scopesAction,
	}
}

// scopesAction needs no credentials document; the requirements are static.
func scopesAction(_ context.Context, cmd *cli.Command) error {
	role, err := account.ParseRole(cmd.String("role"))
	if err != nil {
		return err
	}

	registry := scopes.NewRegistry(scopes.Defaults()...)
	out := cmd.Root().Writer

	if !cmd.Bool("verbose") {
		_, err := fmt.Fprintln(out, registry.ScopeString(role))
		return err
	}

	for _, scope := range registry.RequiredScopes(role) {
		fmt.Fprintf(out, "%s\t%s\n", scope, strings.Join(registry.Operations(role, scope), ", "))
	}
	return nil
}
