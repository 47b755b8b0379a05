// Package rpctest runs an in-process ledger network API for tests.
package rpctest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/way365/ledger-client/protocol"
	"golang.org/x/crypto/sha3"
)

// Network mimics the balance, send-tx and tx endpoints. Accepted transactions
// start out pending: the primary lookup answers 403 and only the epoch search
// finds them, until Finalize is called.
type Network struct {
	Server *httptest.Server

	mu           sync.Mutex
	balances     map[string]string
	finalized    map[string]protocol.ResolvedTx
	pending      map[string]protocol.ResolvedTx
	forced       map[string]int // "primary:hash" or "epoch_search:hash" -> status
	submitStatus int
	submitBody   string
	submissions  [][]byte
	requests     []string
	epoch        int
}

func NewNetwork() *Network {
	n := &Network{
		balances:  make(map[string]string),
		finalized: make(map[string]protocol.ResolvedTx),
		pending:   make(map[string]protocol.ResolvedTx),
		forced:    make(map[string]int),
		epoch:     1,
	}

	router := mux.NewRouter()
	router.HandleFunc("/balance/{address}", n.balance).Methods(http.MethodGet)
	router.HandleFunc("/send-tx", n.sendTx).Methods(http.MethodPost)
	router.HandleFunc("/tx/{hash}", n.tx).Methods(http.MethodGet)

	n.Server = httptest.NewServer(router)
	return n
}

func (n *Network) URL() string { return n.Server.URL }

func (n *Network) Close() { n.Server.Close() }

// SetAccount serves {"nonce":nonce,"balance":"balance"}.
func (n *Network) SetAccount(address string, nonce uint64, balance string) {
	n.SetBalanceBody(address, fmt.Sprintf(`{"nonce":%d,"balance":%q}`, nonce, balance))
}

// SetBalanceBody serves body verbatim for address.
func (n *Network) SetBalanceBody(address, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[address] = body
}

// ReplySubmit overrides the /send-tx reply. Status 0 restores the default JSON reply.
func (n *Network) ReplySubmit(status int, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitStatus = status
	n.submitBody = body
}

// ForceStatus makes one lookup stage ("primary" or "epoch_search") of hash answer status.
func (n *Network) ForceStatus(stage, hash string, status int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.forced[stage+":"+hash] = status
}

func (n *Network) AddPending(tx protocol.ResolvedTx) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending[tx.TxHash] = tx
}

func (n *Network) AddFinalized(tx protocol.ResolvedTx) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finalized[tx.TxHash] = tx
}

// Finalize seals a pending transaction.
func (n *Network) Finalize(hash string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if tx, ok := n.pending[hash]; ok {
		delete(n.pending, hash)
		tx.Validator = "validator-1"
		tx.BlockTimestamp = tx.ParsedTx.Timestamp
		n.finalized[hash] = tx
	}
}

// Requests lists "METHOD path?query" for every request served, in order.
func (n *Network) Requests() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.requests...)
}

// Submissions returns the raw /send-tx bodies received.
func (n *Network) Submissions() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.submissions...)
}

func (n *Network) record(r *http.Request) {
	n.requests = append(n.requests, r.Method+" "+r.URL.RequestURI())
}

func (n *Network) balance(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record(r)

	body, ok := n.balances[mux.Vars(r)["address"]]
	if !ok {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

type submission struct {
	From      string  `json:"from"`
	To        string  `json:"to_"`
	Amount    string  `json:"amount"`
	Nonce     uint64  `json:"nonce"`
	Tier      string  `json:"ou"`
	Timestamp float64 `json:"timestamp"`
	Signature string  `json:"signature"`
	PublicKey string  `json:"public_key"`
}

func (n *Network) sendTx(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.record(r)

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n.submissions = append(n.submissions, body)

	if n.submitStatus != 0 {
		w.WriteHeader(n.submitStatus)
		fmt.Fprint(w, n.submitBody)
		return
	}

	var sub submission
	if err := json.Unmarshal(body, &sub); err != nil {
		http.Error(w, "malformed transaction", http.StatusBadRequest)
		return
	}

	digest := sha3.Sum256(body)
	hash := hex.EncodeToString(digest[:])

	n.pending[hash] = protocol.ResolvedTx{
		TxHash: hash,
		ParsedTx: protocol.ParsedTx{
			From:      sub.From,
			To:        sub.To,
			Amount:    protocol.Scalar(sub.Amount),
			Nonce:     protocol.Scalar(strconv.FormatUint(sub.Nonce, 10)),
			Timestamp: protocol.Scalar(protocol.FormatTimestamp(sub.Timestamp)),
		},
		Epoch: protocol.Scalar(strconv.Itoa(n.epoch)),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tx_hash": hash,
		"epoch":   n.epoch,
		"status":  "accepted",
	})
}

func (n *Network) tx(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.record(r)

	hash := mux.Vars(r)["hash"]
	stage := "primary"
	if r.URL.Query().Get("source") == "epoch_search" {
		stage = "epoch_search"
	}

	if status, ok := n.forced[stage+":"+hash]; ok {
		http.Error(w, http.StatusText(status), status)
		return
	}

	var (
		tx    protocol.ResolvedTx
		found bool
	)
	if stage == "primary" {
		if _, pending := n.pending[hash]; pending {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		tx, found = n.finalized[hash]
	} else {
		tx, found = n.pending[hash]
	}

	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tx)
}
