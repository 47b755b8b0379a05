package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/way365/ledger-client/protocol"
)

// FetchState reads the sender's current nonce and balance.
func (c *Client) FetchState(ctx context.Context, address string) (protocol.AccountState, error) {
	var state protocol.AccountState

	status, payload, err := c.do(ctx, http.MethodGet, BALANCE_PATH+url.PathEscape(address), nil, nil)
	if err != nil {
		return state, err
	}

	if !isSuccess(status) {
		return state, remoteError(status, payload)
	}

	if err := json.Unmarshal(payload, &state); err != nil {
		return state, errors.Wrap(err, "decode balance response")
	}

	c.logger.Debug().Str("address", address).Uint64("nonce", state.Nonce).Str("balance", state.Balance.String()).Msg("account state")

	return state, nil
}
