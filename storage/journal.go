package storage

import (
	"encoding/binary"
	"encoding/json"
	"sort"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/way365/ledger-client/protocol"
	"github.com/willf/bloom"
	"golang.org/x/crypto/sha3"
)

const (
	SUBMITTED_BUCKET = "submitted"
	NONCES_BUCKET    = "nonces"

	BLOOM_CAPACITY   = 10000
	BLOOM_ERROR_RATE = 0.001

	ERROR_MSG = "Open journal aborted: "
)

// Entry is one locally recorded submission.
type Entry struct {
	Hash        string        `json:"hash"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Amount      uint64        `json:"amount"`
	Nonce       uint64        `json:"nonce"`
	Tier        string        `json:"ou"`
	Timestamp   float64       `json:"timestamp"`
	Latency     time.Duration `json:"latency"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Status      string        `json:"status"`
}

// Journal remembers what this client submitted. The network stays authoritative;
// the journal only exists to show history and to warn about nonce reuse while an
// earlier transaction is still unsealed.
type Journal struct {
	db          *bolt.DB
	nonceFilter *bloom.BloomFilter
	logger      zerolog.Logger
}

func OpenJournal(path string, logger zerolog.Logger) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, ERROR_MSG+path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{SUBMITTED_BUCKET, NONCES_BUCKET} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return errors.Wrapf(err, ERROR_MSG+"create bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	j := &Journal{
		db:          db,
		nonceFilter: bloom.NewWithEstimates(BLOOM_CAPACITY, BLOOM_ERROR_RATE),
		logger:      logger.With().Str("component", "journal").Logger(),
	}

	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(NONCES_BUCKET)).ForEach(func(k, _ []byte) error {
			j.nonceFilter.Add(k)
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, ERROR_MSG+"load nonce filter")
	}

	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func nonceKey(from string, nonce uint64) []byte {
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], nonce)

	hash := sha3.Sum256(append([]byte(from), counter[:]...))
	return hash[:]
}

// RecordSubmission stores an accepted transaction under its network hash.
func (j *Journal) RecordSubmission(tx *protocol.SendTx, hash string, latency time.Duration, at time.Time) error {
	if hash == "" {
		return errors.New("cannot journal a submission without a hash")
	}

	entry := Entry{
		Hash:        hash,
		From:        tx.From,
		To:          tx.To,
		Amount:      tx.Amount,
		Nonce:       tx.Nonce,
		Tier:        tx.Tier,
		Timestamp:   tx.Timestamp,
		Latency:     latency,
		SubmittedAt: at.UTC(),
		Status:      protocol.STATUS_SUBMITTED,
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "encode journal entry")
	}

	key := nonceKey(tx.From, tx.Nonce)
	err = j.db.Update(func(btx *bolt.Tx) error {
		if err := btx.Bucket([]byte(SUBMITTED_BUCKET)).Put([]byte(hash), encoded); err != nil {
			return err
		}
		return btx.Bucket([]byte(NONCES_BUCKET)).Put(key, []byte(hash))
	})
	if err != nil {
		return errors.Wrap(err, "write journal entry")
	}

	j.nonceFilter.Add(key)
	j.logger.Debug().Str("tx_hash", hash).Uint64("nonce", tx.Nonce).Msg("submission journaled")

	return nil
}

// NonceUsed reports the hash of an earlier local submission from the same sender
// with the same nonce. The bloom filter answers the common negative case without
// touching the database.
func (j *Journal) NonceUsed(from string, nonce uint64) (hash string, used bool, err error) {
	key := nonceKey(from, nonce)
	if !j.nonceFilter.Test(key) {
		return "", false, nil
	}

	err = j.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(NONCES_BUCKET)).Get(key); v != nil {
			hash = string(v)
			used = true
		}
		return nil
	})

	return hash, used, errors.Wrap(err, "read nonce index")
}

// Entry returns nil if the hash was never journaled.
func (j *Journal) Entry(hash string) (entry *Entry, err error) {
	err = j.db.View(func(tx *bolt.Tx) error {
		encoded := tx.Bucket([]byte(SUBMITTED_BUCKET)).Get([]byte(hash))
		if encoded == nil {
			return nil
		}
		entry = new(Entry)
		return json.Unmarshal(encoded, entry)
	})

	if err != nil {
		return nil, errors.Wrap(err, "read journal entry")
	}

	return entry, nil
}

// UpdateStatus records the last status seen for a journaled hash. Unknown hashes
// are ignored: viewing someone else's transaction is not an error.
func (j *Journal) UpdateStatus(hash, status string) error {
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(SUBMITTED_BUCKET))
		encoded := b.Get([]byte(hash))
		if encoded == nil {
			return nil
		}

		var entry Entry
		if err := json.Unmarshal(encoded, &entry); err != nil {
			return err
		}
		if entry.Status == status {
			return nil
		}
		entry.Status = status

		updated, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		j.logger.Debug().Str("tx_hash", hash).Str("status", status).Msg("status updated")
		return b.Put([]byte(hash), updated)
	})

	return errors.Wrap(err, "update journal status")
}

// Entries returns every journaled submission, oldest first.
func (j *Journal) Entries() ([]Entry, error) {
	var entries []Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(SUBMITTED_BUCKET)).ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "read journal")
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].SubmittedAt.Equal(entries[b].SubmittedAt) {
			return entries[a].Nonce < entries[b].Nonce
		}
		return entries[a].SubmittedAt.Before(entries[b].SubmittedAt)
	})

	return entries, nil
}
