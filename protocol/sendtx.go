package protocol

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	UNIT_DECIMALS       = 6    //Smallest unit is 10^-6
	HIGH_TIER_THRESHOLD = 1000 //Whole units

	TIER_STANDARD = "1"
	TIER_HIGH     = "3"
)

var maxUnits = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// SendTx is the signed value transfer submitted to the network.
// Field order in CanonicalBytes is part of the network protocol: reordering or
// reformatting invalidates every signature.
type SendTx struct {
	From      string
	To        string
	Amount    uint64 // smallest units
	Nonce     uint64
	Tier      string
	Timestamp float64 // seconds since epoch
	Signature string  // base64
	PublicKey string  // base64
}

func ConstrSendTx(
	from, to string,
	amount decimal.Decimal,
	nonce uint64,
	timestamp float64,
) (tx *SendTx, err error) {
	if !amount.IsPositive() {
		return nil, NewValidationError("amount must be greater than zero")
	}

	units, err := ToUnits(amount)
	if err != nil {
		return nil, err
	}
	if units == 0 {
		return nil, NewValidationError("amount %s is below the smallest unit", amount.String())
	}

	tx = new(SendTx)

	tx.From = from
	tx.To = to
	tx.Amount = units
	tx.Nonce = nonce
	tx.Tier = TierOf(amount)
	tx.Timestamp = timestamp

	return tx, nil
}

// ToUnits converts a decimal amount to integer smallest units, truncating toward zero.
func ToUnits(amount decimal.Decimal) (uint64, error) {
	units := amount.Shift(UNIT_DECIMALS).Truncate(0)
	if units.IsNegative() || units.GreaterThan(maxUnits) {
		return 0, NewValidationError("amount %s out of range", amount.String())
	}

	return units.BigInt().Uint64(), nil
}

func TierOf(amount decimal.Decimal) string {
	if amount.LessThan(decimal.NewFromInt(HIGH_TIER_THRESHOLD)) {
		return TIER_STANDARD
	}
	return TIER_HIGH
}

func TimestampOf(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// CanonicalBytes returns the compact encoding of the unsigned fields that gets signed.
func (tx *SendTx) CanonicalBytes() []byte {
	buf := new(bytes.Buffer)
	tx.writeUnsigned(buf)
	buf.WriteByte('}')
	return buf.Bytes()
}

func (tx *SendTx) writeUnsigned(buf *bytes.Buffer) {
	buf.WriteString(`{"from":`)
	writeString(buf, tx.From)
	buf.WriteString(`,"to_":`)
	writeString(buf, tx.To)
	buf.WriteString(`,"amount":`)
	writeString(buf, strconv.FormatUint(tx.Amount, 10))
	buf.WriteString(`,"nonce":`)
	buf.WriteString(strconv.FormatUint(tx.Nonce, 10))
	buf.WriteString(`,"ou":`)
	writeString(buf, tx.Tier)
	buf.WriteString(`,"timestamp":`)
	buf.WriteString(FormatTimestamp(tx.Timestamp))
}

// Sign signs the canonical bytes and attaches signature and public key.
func (tx *SendTx) Sign(signer Signer) {
	sig := signer.Sign(tx.CanonicalBytes())
	tx.Signature = base64.StdEncoding.EncodeToString(sig)
	tx.PublicKey = base64.StdEncoding.EncodeToString(signer.PublicKey())
}

func (tx *SendTx) IsSigned() bool {
	return tx.Signature != "" && tx.PublicKey != ""
}

// MarshalJSON renders the submission body: the canonical object followed by
// signature and public_key.
func (tx *SendTx) MarshalJSON() ([]byte, error) {
	if !tx.IsSigned() {
		return nil, errors.New("transaction is not signed")
	}

	buf := new(bytes.Buffer)
	tx.writeUnsigned(buf)
	buf.WriteString(`,"signature":`)
	writeString(buf, tx.Signature)
	buf.WriteString(`,"public_key":`)
	writeString(buf, tx.PublicKey)
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// FormatTimestamp renders seconds as the shortest round-trip decimal, always
// with a fractional part (1700000000.0, 1700000000.25).
func FormatTimestamp(ts float64) string {
	s := strconv.FormatFloat(ts, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

//ASCII-only JSON string: everything outside printable ASCII is \u-escaped.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r < 0x20 || (r > 0x7e && r < 0x10000):
			fmt.Fprintf(buf, `\u%04x`, r)
		case r >= 0x10000:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func (tx SendTx) String() string {
	return fmt.Sprintf(
		"\nFrom: %v\n"+
			"To: %v\n"+
			"Amount: %v\n"+
			"Nonce: %v\n"+
			"Tier: %v\n"+
			"Timestamp: %v\n"+
			"Signed: %t",
		tx.From,
		tx.To,
		tx.Amount,
		tx.Nonce,
		tx.Tier,
		FormatTimestamp(tx.Timestamp),
		tx.IsSigned(),
	)
}

// FromUnits is the inverse of ToUnits.
func FromUnits(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -UNIT_DECIMALS)
}
