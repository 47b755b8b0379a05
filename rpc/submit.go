package rpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/way365/ledger-client/protocol"
)

// Submit posts a signed transaction exactly once. Failures are reported inside
// the result, never retried: resubmitting without a nonce bump is unsafe.
func (c *Client) Submit(ctx context.Context, tx *protocol.SendTx) protocol.SubmissionResult {
	body, err := tx.MarshalJSON()
	if err != nil {
		return protocol.SubmissionResult{Detail: err.Error(), Err: err}
	}

	start := time.Now()
	status, payload, err := c.do(ctx, http.MethodPost, SEND_TX_PATH, nil, body)
	if err != nil {
		return protocol.SubmissionResult{Detail: err.Error(), Err: err}
	}
	latency := time.Since(start)

	if status != http.StatusOK {
		return protocol.SubmissionResult{
			Detail:  strings.TrimSpace(string(payload)),
			Err:     remoteError(status, payload),
			Latency: latency,
		}
	}

	resp, err := protocol.DecodeSubmitResponse(payload)
	if err != nil {
		c.logger.Warn().Err(err).Msg("unrecognized submission response")
		return protocol.SubmissionResult{
			Detail:  strings.TrimSpace(string(payload)),
			Err:     err,
			Latency: latency,
		}
	}

	c.logger.Info().Str("tx_hash", resp.TxHash()).Dur("latency", latency).Msg("transaction submitted")

	return protocol.SubmissionResult{OK: true, Response: resp, Latency: latency}
}
