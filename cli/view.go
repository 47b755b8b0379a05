package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli"
)

func GetViewCommand(in io.Reader, out io.Writer) cli.Command {
	return cli.Command{
		Name:      "view",
		Usage:     "look up a transaction by hash",
		ArgsUsage: "HASH",
		Action: withSession(in, out, func(s *session, c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.NewExitError("usage: view HASH", 1)
			}
			return runView(context.Background(), s, c.Args().First())
		}),
	}
}

// runView never needs credentials. Lookup errors are printed, not fatal.
func runView(ctx context.Context, s *session, hash string) error {
	s.openExistingJournal()

	tx, pending, err := s.flow().Lookup(ctx, hash)
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return nil
	}

	PrettyLog(s.out, tx, pending, s.cfg.ScanURL)
	return nil
}
