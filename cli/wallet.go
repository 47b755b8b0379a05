package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli"
)

func GetBalanceCommand(in io.Reader, out io.Writer) cli.Command {
	return cli.Command{
		Name:  "balance",
		Usage: "show balance and nonce of the configured sender",
		Action: withSession(in, out, func(s *session, c *cli.Context) error {
			return runBalance(context.Background(), s)
		}),
	}
}

func runBalance(ctx context.Context, s *session) error {
	address, err := s.cfg.Sender()
	if err != nil {
		return abort(err)
	}

	state, err := s.client.FetchState(ctx, address)
	if err != nil {
		return abort(err)
	}

	fmt.Fprintf(s.out, "address: %s\n", address)
	fmt.Fprintf(s.out, "balance: %s\n", state.Balance.StringFixed(6))
	fmt.Fprintf(s.out, "nonce:   %d\n", state.Nonce)

	return nil
}
