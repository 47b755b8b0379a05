package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/way365/ledger-client/protocol"
)

type lookupStage int

const (
	//Finalized store
	stagePrimary lookupStage = iota
	//Working set of the current unsealed epoch
	stageEpochSearch
)

func (s lookupStage) query() url.Values {
	if s == stageEpochSearch {
		return url.Values{SOURCE_PARAM: {SOURCE_EPOCH_SEARCH}}
	}
	return nil
}

func (s lookupStage) String() string {
	if s == stageEpochSearch {
		return "epoch_search"
	}
	return "primary"
}

// Resolve looks a transaction up by hash. The primary lookup only sees finalized
// transactions and answers 403 for anything newer; with allowPending set, that one
// status moves to a single epoch-search lookup whose success means pending.
// Every other outcome ends the procedure: there is never a third request.
func (c *Client) Resolve(ctx context.Context, hash string, allowPending bool) (*protocol.ResolvedTx, bool, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, false, protocol.NewValidationError("empty transaction hash")
	}

	stage := stagePrimary
	for {
		tx, status, err := c.lookup(ctx, hash, stage)
		switch {
		case err == nil:
			return tx, stage == stageEpochSearch, nil

		case stage == stagePrimary && status == http.StatusForbidden && allowPending:
			c.logger.Debug().Str("tx_hash", hash).Msg("not finalized yet, searching current epoch")
			stage = stageEpochSearch

		default:
			return nil, false, err
		}
	}
}

func (c *Client) lookup(ctx context.Context, hash string, stage lookupStage) (*protocol.ResolvedTx, int, error) {
	status, payload, err := c.do(ctx, http.MethodGet, TX_PATH+url.PathEscape(hash), stage.query(), nil)
	if err != nil {
		return nil, status, err
	}

	if !isSuccess(status) {
		return nil, status, remoteError(status, payload)
	}

	tx := new(protocol.ResolvedTx)
	if err := json.Unmarshal(payload, tx); err != nil {
		return nil, status, errors.Wrapf(err, "decode %s lookup", stage)
	}

	return tx, status, nil
}
