package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"
	"github.com/way365/ledger-client/config"
	"github.com/way365/ledger-client/protocol"
	"github.com/way365/ledger-client/rpc"
	"github.com/way365/ledger-client/sender"
	"github.com/way365/ledger-client/storage"
)

var errAborted = errors.New("aborted")

// session is the per-invocation state shared by every command. Nothing in it holds
// key material: the signer is created inside the send command only.
type session struct {
	cfg     *config.Config
	logger  zerolog.Logger
	client  *rpc.Client
	journal *storage.Journal
	in      *bufio.Reader
	out     io.Writer
}

func openSession(c *cli.Context, in io.Reader, out io.Writer) (*session, error) {
	cfg, err := config.Load(c.GlobalString("env"))
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if c.GlobalIsSet("log-level") {
		level = c.GlobalString("log-level")
	}

	return newSession(cfg, storage.InitLogger(level), in, out), nil
}

func newSession(cfg *config.Config, logger zerolog.Logger, in io.Reader, out io.Writer) *session {
	return &session{
		cfg:    cfg,
		logger: logger,
		client: rpc.NewClient(cfg.APIURL, logger),
		in:     bufio.NewReader(in),
		out:    out,
	}
}

// openJournal is best effort: the network is authoritative, so a missing journal
// only costs history and the nonce reuse warning.
func (s *session) openJournal() {
	if s.journal != nil || s.cfg.Journal == "" {
		return
	}

	journal, err := storage.OpenJournal(s.cfg.Journal, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.cfg.Journal).Msg("journal disabled")
		return
	}
	s.journal = journal
}

// openExistingJournal opens the journal only if a previous send created it.
func (s *session) openExistingJournal() {
	if s.cfg.Journal == "" {
		return
	}
	if _, err := os.Stat(s.cfg.Journal); err != nil {
		return
	}
	s.openJournal()
}

func (s *session) flow() *sender.Flow {
	flow := sender.NewFlow(s.client, s.client, s.client, s.logger)
	if s.journal != nil {
		flow.WithJournal(s.journal)
	}
	return flow
}

func (s *session) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close journal")
		}
		s.journal = nil
	}
}

func (s *session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)

	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", errAborted
	}

	return strings.TrimSpace(input), nil
}

// abort turns an error into the process exit the user sees.
func abort(err error) error {
	if protocol.IsConfigError(err) || protocol.IsValidationError(err) {
		return cli.NewExitError(err.Error(), 1)
	}
	return cli.NewExitError("error: "+err.Error(), 1)
}

func withSession(in io.Reader, out io.Writer, run func(s *session, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c, in, out)
		if err != nil {
			return abort(err)
		}
		defer s.Close()

		return run(s, c)
	}
}
