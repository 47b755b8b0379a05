package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/way365/ledger-client/protocol"
)

const (
	CURRENCY  = "OCT"
	KEY_WIDTH = 11
)

func line(w io.Writer, tag string) {
	dashes := strings.Repeat("-", 40)
	if tag == "" {
		fmt.Fprintln(w, dashes+"-"+dashes)
		return
	}
	fmt.Fprintln(w, dashes, tag, dashes)
}

// PrettyLog prints a resolved transaction as aligned key/value lines.
func PrettyLog(w io.Writer, tx *protocol.ResolvedTx, pending bool, scanURL string) {
	ln := func(key string, value interface{}) {
		fmt.Fprintf(w, "%-*s: %v\n", KEY_WIDTH, key, value)
	}

	status := "✔ finalised"
	if pending {
		status = "⏳ pending"
	}

	pt := tx.ParsedTx

	ln("tx_hash", orDash(tx.TxHash))
	ln("from", orDash(pt.From))
	ln("to", orDash(pt.To))
	ln("amount", orDash(pt.Amount.String())+" "+CURRENCY)
	ln("nonce", orDash(pt.Nonce.String()))
	ln("epoch", orDash(tx.Epoch.String()))
	ln("validator", orDash(tx.Validator))
	ln("timestamp", isoTime(pt.Timestamp))
	ln("block_ts", isoTime(tx.BlockTimestamp))
	ln("status", status)
	ln("link", fmt.Sprintf("%s/%s", scanURL, orDash(tx.TxHash)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// isoTime renders epoch seconds as UTC ISO-8601 with microseconds when present.
func isoTime(ts protocol.Scalar) string {
	seconds, ok := ts.Float()
	if !ok || seconds == 0 {
		return "-"
	}

	whole, frac := math.Modf(seconds)
	t := time.Unix(int64(whole), int64(math.Round(frac*1e6))*int64(time.Microsecond)).UTC()

	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05") + "Z"
	}
	return t.Format("2006-01-02T15:04:05.000000") + "Z"
}
