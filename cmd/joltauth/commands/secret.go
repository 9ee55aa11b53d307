package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

func secretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "manage the Twitch application's client secret",
		Commands: []*cli.Command{
			{
				Name:   "set",
				Usage:  "read the client secret from the terminal and store it",
				Action: secretSetAction,
			},
		},
	}
}

func secretSetAction(ctx context.Context, cmd *cli.Command) error {
	application, shutdown, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer shutdown()

	secret, err := readSecret(cmd)
	if err != nil {
		return err
	}

	if err := application.Secrets().Write(ctx, secret); err != nil {
		return fmt.Errorf("storing client secret: %w", err)
	}
	fmt.Fprintln(cmd.Root().Writer, "client secret stored")
	return nil
}

// readSecret prompts without echo on a terminal and reads one line otherwise.
func readSecret(cmd *cli.Command) (string, error) {
	root := cmd.Root()

	if f, ok := root.Reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(root.Writer, "Client secret: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(root.Writer)
		if err != nil {
			return "", fmt.Errorf("reading client secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(root.Reader).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading client secret: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", errors.New("client secret cannot be empty")
	}
	return secret, nil
}
