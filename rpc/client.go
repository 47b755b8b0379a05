package rpc

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/way365/ledger-client/protocol"
)

const (
	REQUEST_TIMEOUT = 10 * time.Second
	USER_AGENT      = "ledger-client/1.0"

	BALANCE_PATH = "/balance/"
	SEND_TX_PATH = "/send-tx"
	TX_PATH      = "/tx/"

	SOURCE_PARAM        = "source"
	SOURCE_EPOCH_SEARCH = "epoch_search"

	MAX_RESPONSE_SIZE = 4 << 20 //Byte
)

// Client talks to the network's HTTP API. Every call is a single attempt bounded
// by REQUEST_TIMEOUT; nothing is retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: REQUEST_TIMEOUT},
		logger:     logger.With().Str("component", "rpc").Logger(),
	}
}

// do performs one request. Transport failures come back as NetworkError with status 0;
// any HTTP status is returned to the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (status int, payload []byte, err error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "build %s %s", method, path)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return 0, nil, errors.WithStack(&protocol.NetworkError{Op: method + " " + path, Err: err})
	}
	defer resp.Body.Close()

	payload, err = ioutil.ReadAll(io.LimitReader(resp.Body, MAX_RESPONSE_SIZE))
	if err != nil {
		return resp.StatusCode, nil, errors.WithStack(&protocol.NetworkError{Op: "read " + path, Err: err})
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	return resp.StatusCode, payload, nil
}

func remoteError(status int, payload []byte) error {
	return errors.WithStack(&protocol.RemoteError{
		StatusCode: status,
		Body:       strings.TrimSpace(string(payload)),
	})
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
