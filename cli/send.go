package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli"
	"github.com/way365/ledger-client/crypto"
	"github.com/way365/ledger-client/protocol"
)

func GetSendCommand(in io.Reader, out io.Writer) cli.Command {
	return cli.Command{
		Name:  "send",
		Usage: "interactively build, sign and submit a transfer",
		Action: withSession(in, out, func(s *session, c *cli.Context) error {
			return runSend(context.Background(), s)
		}),
	}
}

func runSend(ctx context.Context, s *session) error {
	privKey, from, err := s.cfg.Credentials()
	if err != nil {
		return abort(err)
	}

	signer, err := crypto.NewSignerFromBase64(privKey)
	if err != nil {
		return abort(err)
	}

	s.openJournal()
	flow := s.flow()

	line(s.out, "SEND")

	to, err := s.prompt("to: ")
	if err != nil {
		fmt.Fprintln(s.out, "\naborted")
		return nil
	}
	if !protocol.IsValidAddress(to) {
		return abort(protocol.NewValidationError("bad addr"))
	}

	amount, err := s.prompt("amt: ")
	if err != nil {
		fmt.Fprintln(s.out, "\naborted")
		return nil
	}

	intent, err := protocol.ParseIntent(to, amount)
	if err != nil {
		return abort(err)
	}

	quote, err := flow.Prepare(ctx, from, intent)
	if err != nil {
		return abort(err)
	}

	fmt.Fprintln(s.out, quote.State.String())
	if quote.PriorHash != "" {
		fmt.Fprintf(s.out, "warning: nonce %d was already used by %s, which may still be unsealed\n", quote.Nonce, quote.PriorHash)
	}

	answer, err := s.prompt("send? y/n ")
	if err != nil {
		fmt.Fprintln(s.out, "\naborted")
		return nil
	}
	if strings.ToLower(answer) != "y" {
		return nil
	}

	receipt, err := flow.Execute(ctx, quote, signer)
	if err != nil {
		return abort(err)
	}

	if !receipt.Submission.OK {
		fmt.Fprintln(s.out, "fail", receipt.Submission.Detail)
		return nil
	}

	hash := receipt.Submission.TxHash()
	fmt.Fprintf(s.out, "ok %s (%.2fs)\n", hash, receipt.Submission.Latency.Seconds())
	if epoch := receipt.Submission.Epoch(); !epoch.IsZero() {
		fmt.Fprintf(s.out, "epoch: %s (unsealed)\n", epoch)
	}
	fmt.Fprintf(s.out, "view: %s/%s\n", s.cfg.ScanURL, hash)

	switch {
	case receipt.Resolved != nil:
		PrettyLog(s.out, receipt.Resolved, receipt.Pending, s.cfg.ScanURL)
	case receipt.LookupErr != nil:
		printPending(s.out, receipt.LookupErr)
	}

	line(s.out, "")
	return nil
}

// printPending reports a lookup that could not read the transaction back yet.
// Only a 403 is the expected "not finalized" answer; anything else is shown too.
func printPending(w io.Writer, err error) {
	fmt.Fprintln(w, "\n⏳ pending: tx is not in the finalized store yet. Wait for the epoch to end.")
	if protocol.StatusCode(err) != 403 {
		fmt.Fprintln(w, "lookup error:", err)
	}
}
