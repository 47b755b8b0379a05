package protocol

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ADDRESS_PREFIX      = "oct"
	ADDRESS_BODY_LENGTH = 44
	ADDRESS_LENGTH      = len(ADDRESS_PREFIX) + ADDRESS_BODY_LENGTH
)

var (
	//Base58 alphabet: no 0, O, I or l
	addressPattern = regexp.MustCompile(`^oct[1-9A-HJ-NP-Za-km-z]{44}$`)
	amountPattern  = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// IsValidAmount reports whether s is a plain decimal numeral (no sign, no exponent)
// with a value strictly greater than zero.
func IsValidAmount(s string) bool {
	if !amountPattern.MatchString(s) {
		return false
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}

	return amount.IsPositive()
}

// Intent is what the user asked for before any network state is known.
type Intent struct {
	To     string
	Amount decimal.Decimal
}

// ParseIntent validates the raw destination and amount strings.
func ParseIntent(to, amount string) (Intent, error) {
	to = strings.TrimSpace(to)
	amount = strings.TrimSpace(amount)

	if !IsValidAddress(to) {
		return Intent{}, NewValidationError("bad addr")
	}

	if !IsValidAmount(amount) {
		return Intent{}, NewValidationError("bad amt")
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Intent{}, NewValidationError("bad amt")
	}
	if units, err := ToUnits(value); err != nil || units == 0 {
		return Intent{}, NewValidationError("bad amt")
	}

	return Intent{To: to, Amount: value}, nil
}
