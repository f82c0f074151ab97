package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// Quantity is a numeric transaction field with a single canonical wire
// encoding. It accepts hex strings, decimal strings and JSON numbers on input
// and always marshals as minimal 0x-prefixed hex, so the signing gateway and
// the custodial provider never have to infer the representation.
type Quantity struct {
	i big.Int
}

// NewQuantity wraps a big integer. Returns nil for a nil input.
func NewQuantity(v *big.Int) *Quantity {
	if v == nil {
		return nil
	}
	q := new(Quantity)
	q.i.Set(v)
	return q
}

// QuantityFromUint64 wraps an unsigned integer.
func QuantityFromUint64(v uint64) *Quantity {
	q := new(Quantity)
	q.i.SetUint64(v)
	return q
}

// BigInt returns a copy of the underlying integer.
func (q *Quantity) BigInt() *big.Int {
	return new(big.Int).Set(&q.i)
}

// Uint64 returns the value truncated to 64 bits.
func (q *Quantity) Uint64() uint64 {
	return q.i.Uint64()
}

// Hex returns the canonical 0x-prefixed encoding.
func (q *Quantity) Hex() string {
	return hexutil.EncodeBig(&q.i)
}

// MarshalJSON encodes the quantity as canonical hex.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.EncodeBig(&q.i))
}

// UnmarshalJSON parses hex strings, decimal strings and JSON numbers.
// Fractional and negative values are rejected.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
		}
		raw = s

		if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
			v, ok := new(big.Int).SetString(s[2:], 16)
			if !ok {
				return fmt.Errorf("%w: malformed hex %q", ErrInvalidQuantity, s)
			}
			q.i.Set(v)
			return nil
		}
	}

	// Decimal strings and JSON numbers, including exponent notation.
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	if !d.IsInteger() {
		return fmt.Errorf("%w: %q is not an integer", ErrInvalidQuantity, raw)
	}
	if d.Sign() < 0 {
		return fmt.Errorf("%w: %q is negative", ErrInvalidQuantity, raw)
	}
	q.i.Set(d.BigInt())
	return nil
}

// Transaction is the wire form of a transaction submitted for signing.
// Numeric fields are Quantities, so a marshaled Transaction is always in the
// canonical encoding regardless of how the caller spelled the values.
type Transaction struct {
	Type                 *Quantity `json:"type,omitempty"`
	ChainID              *Quantity `json:"chainId,omitempty"`
	To                   string    `json:"to,omitempty"`
	Nonce                *Quantity `json:"nonce,omitempty"`
	GasLimit             *Quantity `json:"gasLimit,omitempty"`
	GasPrice             *Quantity `json:"gasPrice,omitempty"`
	MaxFeePerGas         *Quantity `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *Quantity `json:"maxPriorityFeePerGas,omitempty"`
	Value                *Quantity `json:"value,omitempty"`
	Data                 string    `json:"data,omitempty"`
}

// Normalize validates the fields the canonical encoding cannot express on its
// own. The nonce is mandatory: without it the idempotency key would not be
// deterministic for retries of the same transaction.
func (tx *Transaction) Normalize() error {
	if tx.Nonce == nil {
		return ErrMissingNonce
	}
	if tx.To != "" && !common.IsHexAddress(tx.To) {
		return fmt.Errorf("invalid to address %q", tx.To)
	}
	if tx.Data != "" {
		if _, err := hexutil.Decode(tx.Data); err != nil {
			return fmt.Errorf("invalid data field: %w", err)
		}
	}
	return nil
}
