package cli

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"github.com/way365/ledger-client/config"
	"github.com/way365/ledger-client/protocol"
	"github.com/way365/ledger-client/rpc/rpctest"
)

const (
	testSender    = "octMASi45ub7Qe4ZE36UT5G6cU4ud8Fhhe4deS4F3cw9KTA"
	testRecipient = "octb8dLcukC7edhDQ7cn5d4gEYkbUrMWeWQLGsCmrG6dLaY"
	testSeed      = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	testScanURL   = "https://scan.test/tx"
)

var okLine = regexp.MustCompile(`(?m)(?:^|y/n )ok ([0-9a-f]{64}) \(\d+\.\d{2}s\)$`)

func newTestNetwork(t *testing.T) *rpctest.Network {
	network := rpctest.NewNetwork()
	t.Cleanup(network.Close)
	network.SetAccount(testSender, 5, "10.0")
	return network
}

func newTestSession(t *testing.T, network *rpctest.Network, input string) (*session, *bytes.Buffer) {
	cfg := &config.Config{
		PrivateKey:  testSeed,
		FromAddress: testSender,
		APIURL:      network.URL(),
		ScanURL:     testScanURL,
		Journal:     filepath.Join(t.TempDir(), "journal.db"),
	}

	out := new(bytes.Buffer)
	s := newSession(cfg, zerolog.Nop(), strings.NewReader(input), out)
	t.Cleanup(s.Close)

	return s, out
}

func requireExit(t *testing.T, err error, message string) {
	require.Error(t, err)
	exitErr, ok := err.(cli.ExitCoder)
	require.True(t, ok, "want an exit error, got %T", err)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Equal(t, message, err.Error())
}

func TestRunSendPending(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, testRecipient+"\n2.5\ny\n")

	require.NoError(t, runSend(context.Background(), s))

	output := out.String()
	assert.Contains(t, output, "bal: 10.000000  nonce: 5")

	match := okLine.FindStringSubmatch(output)
	require.Len(t, match, 2, output)
	hash := match[1]

	assert.Contains(t, output, "epoch: 1 (unsealed)")
	assert.Contains(t, output, "view: "+testScanURL+"/"+hash)
	assert.Contains(t, output, "amount     : 2500000 OCT")
	assert.Contains(t, output, "nonce      : 6")
	assert.Contains(t, output, "status     : ⏳ pending")
	assert.Contains(t, output, "link       : "+testScanURL+"/"+hash)
}

func TestRunSendBadAddress(t *testing.T) {
	network := newTestNetwork(t)
	s, _ := newTestSession(t, network, "oct123\n2.5\ny\n")

	requireExit(t, runSend(context.Background(), s), "bad addr")
	assert.Empty(t, network.Requests())
}

func TestRunSendBadAmount(t *testing.T) {
	network := newTestNetwork(t)
	s, _ := newTestSession(t, network, testRecipient+"\n-1\ny\n")

	requireExit(t, runSend(context.Background(), s), "bad amt")
	assert.Empty(t, network.Requests())
}

func TestRunSendInsufficientBalance(t *testing.T) {
	network := newTestNetwork(t)
	s, _ := newTestSession(t, network, testRecipient+"\n11\ny\n")

	requireExit(t, runSend(context.Background(), s), "insufficient bal")
	assert.Empty(t, network.Submissions())
}

func TestRunSendMissingCredentials(t *testing.T) {
	network := newTestNetwork(t)
	s, _ := newTestSession(t, network, testRecipient+"\n2.5\ny\n")
	s.cfg.PrivateKey = ""

	err := runSend(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRIVATE_KEY")
	assert.Empty(t, network.Requests())
}

func TestRunSendDeclined(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, testRecipient+"\n2.5\nn\n")

	require.NoError(t, runSend(context.Background(), s))
	assert.Empty(t, network.Submissions())
	assert.NotContains(t, out.String(), "ok ")
}

func TestRunSendAbortedInput(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, "")

	require.NoError(t, runSend(context.Background(), s))
	assert.Contains(t, out.String(), "aborted")
	assert.Empty(t, network.Requests())
}

func TestRunSendSubmissionFailure(t *testing.T) {
	network := newTestNetwork(t)
	network.ReplySubmit(http.StatusInternalServerError, "overloaded")
	s, out := newTestSession(t, network, testRecipient+"\n2.5\ny\n")

	require.NoError(t, runSend(context.Background(), s))
	assert.Contains(t, out.String(), "fail overloaded")
}

func TestRunSendLookupForbidden(t *testing.T) {
	network := newTestNetwork(t)
	network.ReplySubmit(http.StatusOK, "OK deadbeef")
	network.ForceStatus("primary", "deadbeef", http.StatusForbidden)
	network.ForceStatus("epoch_search", "deadbeef", http.StatusForbidden)
	s, out := newTestSession(t, network, testRecipient+"\n2.5\ny\n")

	require.NoError(t, runSend(context.Background(), s))

	output := out.String()
	assert.Contains(t, output, "ok deadbeef")
	assert.Contains(t, output, "⏳ pending: tx is not in the finalized store yet")
	assert.NotContains(t, output, "lookup error")
	assert.NotContains(t, output, "epoch:")
}

func TestRunSendLookupFailure(t *testing.T) {
	network := newTestNetwork(t)
	network.ReplySubmit(http.StatusOK, "OK deadbeef")
	network.ForceStatus("primary", "deadbeef", http.StatusBadGateway)
	s, out := newTestSession(t, network, testRecipient+"\n2.5\ny\n")

	require.NoError(t, runSend(context.Background(), s))

	output := out.String()
	assert.Contains(t, output, "⏳ pending")
	assert.Contains(t, output, "lookup error: remote returned status 502")
}

func TestRunSendWarnsOnNonceReuse(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, testRecipient+"\n1\ny\n"+testRecipient+"\n1\nn\n")

	require.NoError(t, runSend(context.Background(), s))
	require.NoError(t, runSend(context.Background(), s))

	assert.Contains(t, out.String(), "warning: nonce 6 was already used by ")
}

func finalized(hash string) protocol.ResolvedTx {
	return protocol.ResolvedTx{
		TxHash: hash,
		ParsedTx: protocol.ParsedTx{
			From: testSender, To: testRecipient, Amount: "2.5", Nonce: "6", Timestamp: "1700000000.5",
		},
		Epoch:          "3",
		Validator:      "validator-7",
		BlockTimestamp: "1700000010",
	}
}

func TestRunViewFinalized(t *testing.T) {
	network := newTestNetwork(t)
	network.AddFinalized(finalized("abc"))
	s, out := newTestSession(t, network, "")
	s.cfg.PrivateKey = ""

	require.NoError(t, runView(context.Background(), s, "abc"))

	output := out.String()
	assert.Contains(t, output, "tx_hash    : abc")
	assert.Contains(t, output, "validator  : validator-7")
	assert.Contains(t, output, "timestamp  : 2023-11-14T22:13:20.500000Z")
	assert.Contains(t, output, "block_ts   : 2023-11-14T22:13:30Z")
	assert.Contains(t, output, "status     : ✔ finalised")
	assert.Equal(t, []string{"GET /tx/abc"}, network.Requests())
}

func TestRunViewDoesNotCreateJournal(t *testing.T) {
	network := newTestNetwork(t)
	network.AddFinalized(finalized("abc"))
	s, _ := newTestSession(t, network, "")

	require.NoError(t, runView(context.Background(), s, "abc"))
	assert.Nil(t, s.journal)

	_, err := os.Stat(s.cfg.Journal)
	assert.True(t, os.IsNotExist(err))
}

func TestRunViewUpdatesExistingJournal(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, testRecipient+"\n2.5\ny\n")

	require.NoError(t, runSend(context.Background(), s))
	match := okLine.FindStringSubmatch(out.String())
	require.Len(t, match, 2, out.String())
	hash := match[1]
	s.Close()

	network.Finalize(hash)
	require.NoError(t, runView(context.Background(), s, hash))
	require.NotNil(t, s.journal)

	entry, err := s.journal.Entry(hash)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, protocol.STATUS_FINALIZED, entry.Status)
}

func TestLine(t *testing.T) {
	out := new(bytes.Buffer)
	line(out, "SEND")
	line(out, "")

	dashes := strings.Repeat("-", 40)
	assert.Equal(t, dashes+" SEND "+dashes+"\n"+dashes+"-"+dashes+"\n", out.String())
}

func TestRunViewError(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, "")

	require.NoError(t, runView(context.Background(), s, "missing"))
	assert.Contains(t, out.String(), "error: remote returned status 404")
}

func TestRunBalance(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, "")
	s.cfg.PrivateKey = ""

	require.NoError(t, runBalance(context.Background(), s))
	assert.Contains(t, out.String(), "balance: 10.000000")
	assert.Contains(t, out.String(), "nonce:   5")
}

func TestRunHistory(t *testing.T) {
	network := newTestNetwork(t)
	s, out := newTestSession(t, network, testRecipient+"\n2.5\ny\n")

	require.NoError(t, runHistory(s))
	assert.Contains(t, out.String(), "no submissions recorded")

	require.NoError(t, runSend(context.Background(), s))
	match := okLine.FindStringSubmatch(out.String())
	require.Len(t, match, 2, out.String())
	hash := match[1]

	out.Reset()
	require.NoError(t, runHistory(s))
	assert.Contains(t, out.String(), hash)
	assert.Contains(t, out.String(), "2.500000")
	assert.Contains(t, out.String(), protocol.STATUS_PENDING)
}

func TestPrettyLogMissingFields(t *testing.T) {
	out := new(bytes.Buffer)
	PrettyLog(out, &protocol.ResolvedTx{}, false, testScanURL)

	output := out.String()
	assert.Contains(t, output, "tx_hash    : -")
	assert.Contains(t, output, "amount     : - OCT")
	assert.Contains(t, output, "block_ts   : -")
	assert.Contains(t, output, "link       : "+testScanURL+"/-")
}

func TestDefaultActionViewsHash(t *testing.T) {
	for _, key := range []string{"PRIVATE_KEY", "FROM_ADDRESS", "API_URL", "SCAN_URL", "JOURNAL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	network := newTestNetwork(t)
	network.AddFinalized(finalized("abc"))

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, ioutil.WriteFile(envFile, []byte(
		"API_URL="+network.URL()+"\nJOURNAL="+filepath.Join(dir, "journal.db")+"\n"), 0600))

	out := new(bytes.Buffer)
	app := cli.NewApp()
	app.Flags = GlobalFlags()
	app.Action = DefaultAction(strings.NewReader(""), out)

	require.NoError(t, app.Run([]string{"ledger-client", "--env", envFile, "abc"}))
	assert.Contains(t, out.String(), "✔ finalised")
}
