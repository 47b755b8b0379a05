package sender

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/way365/ledger-client/crypto"
	"github.com/way365/ledger-client/protocol"
)

type StateFetcher interface {
	FetchState(ctx context.Context, address string) (protocol.AccountState, error)
}

type Submitter interface {
	Submit(ctx context.Context, tx *protocol.SendTx) protocol.SubmissionResult
}

type Resolver interface {
	Resolve(ctx context.Context, hash string, allowPending bool) (*protocol.ResolvedTx, bool, error)
}

// Journal is the optional local record of submissions.
type Journal interface {
	RecordSubmission(tx *protocol.SendTx, hash string, latency time.Duration, at time.Time) error
	NonceUsed(from string, nonce uint64) (hash string, used bool, err error)
	UpdateStatus(hash, status string) error
}

// Flow is the send pipeline: state -> build -> sign -> submit -> resolve.
// It holds no key material; the signer is passed per call by the send path only.
type Flow struct {
	state     StateFetcher
	submitter Submitter
	resolver  Resolver
	journal   Journal
	logger    zerolog.Logger
	now       func() time.Time
}

func NewFlow(state StateFetcher, submitter Submitter, resolver Resolver, logger zerolog.Logger) *Flow {
	return &Flow{
		state:     state,
		submitter: submitter,
		resolver:  resolver,
		logger:    logger.With().Str("component", "sender").Logger(),
		now:       time.Now,
	}
}

func (f *Flow) WithJournal(journal Journal) *Flow {
	f.journal = journal
	return f
}

func (f *Flow) WithClock(now func() time.Time) *Flow {
	f.now = now
	return f
}

// Quote is a validated intent bound to a fresh account snapshot.
type Quote struct {
	protocol.Intent
	From  string
	State protocol.AccountState
	Nonce uint64

	// PriorHash is set when this client already submitted a transaction with Nonce.
	PriorHash string
}

// Prepare fetches the sender's state and checks the intent against it.
func (f *Flow) Prepare(ctx context.Context, from string, intent protocol.Intent) (*Quote, error) {
	state, err := f.state.FetchState(ctx, from)
	if err != nil {
		return nil, err
	}

	if !state.Covers(intent.Amount) {
		return nil, protocol.NewValidationError("insufficient bal")
	}

	quote := &Quote{
		Intent: intent,
		From:   from,
		State:  state,
		Nonce:  state.Nonce + NONCE_STEP,
	}

	if f.journal != nil {
		hash, used, err := f.journal.NonceUsed(from, quote.Nonce)
		if err != nil {
			f.logger.Warn().Err(err).Msg("journal nonce check failed")
		} else if used {
			quote.PriorHash = hash
			f.logger.Warn().Uint64("nonce", quote.Nonce).Str("prior_tx", hash).Msg("nonce already used by an unsealed local submission")
		}
	}

	return quote, nil
}

// Build assembles and signs the transaction for a quote.
func (f *Flow) Build(quote *Quote, signer protocol.Signer) (*protocol.SendTx, error) {
	tx, err := protocol.ConstrSendTx(quote.From, quote.To, quote.Amount, quote.Nonce, protocol.TimestampOf(f.now()))
	if err != nil {
		return nil, err
	}

	tx.Sign(signer)

	if !crypto.VerifyBase64(tx.PublicKey, tx.CanonicalBytes(), tx.Signature) {
		return nil, errors.New("signature does not verify against the signer's public key")
	}

	f.logger.Debug().Str("tx", tx.String()).Msg("transaction built")

	return tx, nil
}

// Receipt is everything the send path learned about one transaction.
type Receipt struct {
	Tx         *protocol.SendTx
	Submission protocol.SubmissionResult

	Resolved  *protocol.ResolvedTx
	Pending   bool
	LookupErr error
}

// Execute builds, submits once and, on acceptance, makes one immediate lookup.
// A failed lookup never fails the receipt: the transaction may already be accepted.
func (f *Flow) Execute(ctx context.Context, quote *Quote, signer protocol.Signer) (*Receipt, error) {
	tx, err := f.Build(quote, signer)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{Tx: tx}
	receipt.Submission = f.submitter.Submit(ctx, tx)
	if !receipt.Submission.OK {
		f.logger.Warn().Str("detail", receipt.Submission.Detail).Msg("submission failed")
		return receipt, nil
	}

	hash := receipt.Submission.TxHash()
	if hash == "" {
		receipt.LookupErr = errors.New("network accepted the transaction without returning a hash")
		return receipt, nil
	}

	if f.journal != nil {
		if err := f.journal.RecordSubmission(tx, hash, receipt.Submission.Latency, f.now()); err != nil {
			f.logger.Warn().Err(err).Msg("could not journal submission")
		}
	}

	receipt.Resolved, receipt.Pending, receipt.LookupErr = f.Lookup(ctx, hash)

	return receipt, nil
}

// Lookup resolves a hash with the pending fallback enabled and records the
// observed status in the journal.
func (f *Flow) Lookup(ctx context.Context, hash string) (*protocol.ResolvedTx, bool, error) {
	tx, pending, err := f.resolver.Resolve(ctx, hash, true)
	if err != nil {
		return nil, false, err
	}

	if f.journal != nil {
		status := protocol.STATUS_FINALIZED
		if pending {
			status = protocol.STATUS_PENDING
		}
		if err := f.journal.UpdateStatus(hash, status); err != nil {
			f.logger.Warn().Err(err).Msg("could not update journal status")
		}
	}

	return tx, pending, nil
}
