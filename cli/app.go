package cli

import (
	"context"
	"io"

	"github.com/urfave/cli"
	"github.com/way365/ledger-client/config"
)

// DefaultAction keeps the bare invocation short: no argument sends, one argument views.
func DefaultAction(in io.Reader, out io.Writer) cli.ActionFunc {
	return withSession(in, out, func(s *session, c *cli.Context) error {
		switch c.NArg() {
		case 0:
			return runSend(context.Background(), s)
		case 1:
			return runView(context.Background(), s, c.Args().First())
		default:
			return cli.NewExitError("usage: ledger-client [HASH]", 1)
		}
	})
}

func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "env, e",
			Usage: "load PRIVATE_KEY, FROM_ADDRESS and settings from dotenv `FILE`",
			Value: config.DEFAULT_ENV_FILE,
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "diagnostic log `LEVEL` (debug, info, warn, error)",
		},
	}
}
