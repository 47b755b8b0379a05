package protocol

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountState is the network's view of the sender account, fetched right before building.
// The client never owns it; every send starts from a fresh snapshot.
type AccountState struct {
	Nonce   uint64          `json:"nonce"`
	Balance decimal.Decimal `json:"balance"` // string or number on the wire
}

// NextNonce is the nonce the next transaction from this account must carry.
func (acc AccountState) NextNonce() uint64 {
	return acc.Nonce + 1
}

// Covers reports whether the balance is enough to send amount.
func (acc AccountState) Covers(amount decimal.Decimal) bool {
	return acc.Balance.GreaterThanOrEqual(amount)
}

func (acc AccountState) String() string {
	return fmt.Sprintf("bal: %s  nonce: %d", acc.Balance.StringFixed(6), acc.Nonce)
}
