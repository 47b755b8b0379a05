package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/way365/ledger-client/protocol"
)

func GetHistoryCommand(in io.Reader, out io.Writer) cli.Command {
	return cli.Command{
		Name:  "history",
		Usage: "list transactions submitted from this machine",
		Action: withSession(in, out, func(s *session, c *cli.Context) error {
			return runHistory(s)
		}),
	}
}

func runHistory(s *session) error {
	s.openJournal()
	if s.journal == nil {
		return abort(errors.New("journal unavailable"))
	}

	entries, err := s.journal.Entries()
	if err != nil {
		return abort(err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(s.out, "no submissions recorded")
		return nil
	}

	table := tablewriter.NewWriter(s.out)
	table.SetHeader([]string{"submitted", "nonce", "amount", "to", "status", "tx_hash"})
	for _, entry := range entries {
		table.Append([]string{
			entry.SubmittedAt.Format("2006-01-02 15:04:05"),
			strconv.FormatUint(entry.Nonce, 10),
			protocol.FromUnits(entry.Amount).StringFixed(protocol.UNIT_DECIMALS),
			entry.To,
			entry.Status,
			entry.Hash,
		})
	}
	table.Render()

	return nil
}
