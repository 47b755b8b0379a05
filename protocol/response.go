package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	STATUS_SUBMITTED = "submitted"
	STATUS_PENDING   = "pending"
	STATUS_FINALIZED = "finalized"
)

// SubmitResponse is what /send-tx acknowledged. Exactly one of the two variants below.
type SubmitResponse interface {
	TxHash() string
	isSubmitResponse()
}

// StructuredResponse is a JSON object reply. All fields are kept.
type StructuredResponse struct {
	Hash   string
	Epoch  Scalar
	Fields map[string]json.RawMessage
}

// PlainAck is the free-text "ok <hash>" reply.
type PlainAck struct {
	Hash string
}

func (r *StructuredResponse) TxHash() string { return r.Hash }
func (r *PlainAck) TxHash() string           { return r.Hash }

func (*StructuredResponse) isSubmitResponse() {}
func (*PlainAck) isSubmitResponse()           {}

// DecodeSubmitResponse picks the variant from the shape of the body, then parses it.
// Anything else is an AmbiguousResponseError.
func DecodeSubmitResponse(body []byte) (SubmitResponse, error) {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		return decodeStructured(trimmed)
	}

	raw := strings.ToLower(string(trimmed))
	if strings.HasPrefix(raw, "ok") {
		tokens := strings.Fields(raw)
		if len(tokens) >= 2 && strings.TrimRight(tokens[0], ":,.;!-") == "ok" {
			return &PlainAck{Hash: tokens[len(tokens)-1]}, nil
		}
	}

	return nil, errors.WithStack(&AmbiguousResponseError{Body: string(trimmed)})
}

func decodeStructured(body []byte) (SubmitResponse, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, errors.WithStack(&AmbiguousResponseError{Body: string(body)})
	}

	resp := &StructuredResponse{Fields: fields}

	var hash Scalar
	if raw, ok := fields["tx_hash"]; ok {
		if err := json.Unmarshal(raw, &hash); err != nil {
			return nil, errors.WithStack(&AmbiguousResponseError{Body: string(body)})
		}
	}
	resp.Hash = hash.String()

	if raw, ok := fields["epoch"]; ok {
		if err := json.Unmarshal(raw, &resp.Epoch); err != nil {
			return nil, errors.WithStack(&AmbiguousResponseError{Body: string(body)})
		}
	}

	return resp, nil
}

// SubmissionResult is the outcome of a single submission attempt.
type SubmissionResult struct {
	OK       bool
	Response SubmitResponse // set when OK
	Detail   string         // trimmed body or transport error message when !OK
	Err      error
	Latency  time.Duration
}

func (r SubmissionResult) TxHash() string {
	if r.Response == nil {
		return ""
	}
	return r.Response.TxHash()
}

// Epoch is the unsealed epoch reported by a structured reply, if any.
func (r SubmissionResult) Epoch() Scalar {
	if structured, ok := r.Response.(*StructuredResponse); ok {
		return structured.Epoch
	}
	return ""
}

type ParsedTx struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    Scalar `json:"amount"`
	Nonce     Scalar `json:"nonce"`
	Timestamp Scalar `json:"timestamp"`
}

// ResolvedTx is the network's view of a transaction returned by /tx/{hash}.
type ResolvedTx struct {
	TxHash         string   `json:"tx_hash"`
	ParsedTx       ParsedTx `json:"parsed_tx"`
	Epoch          Scalar   `json:"epoch"`
	Validator      string   `json:"validator"`
	BlockTimestamp Scalar   `json:"block_timestamp"`
}

// Scalar holds a JSON string or number as text. The network is not consistent
// about quoting numeric fields.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return errors.Errorf("expected string or number, got %s", b)
	default:
		*s = Scalar(b)
	}
	return nil
}

func (s Scalar) String() string { return string(s) }

func (s Scalar) IsZero() bool { return s == "" }

func (s Scalar) Float() (float64, bool) {
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
