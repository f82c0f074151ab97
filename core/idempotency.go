package core

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

const idempotencyPrefix = "dsigner"

// TransactionIdempotencyKey derives the idempotency key for a transaction
// signing request. Retries of the same (wallet, nonce) pair collapse to one
// key, so the custodial provider recognizes them as duplicates.
func TransactionIdempotencyKey(wallet string, nonce *big.Int) string {
	return fmt.Sprintf("%s_tx_%s_%#x", idempotencyPrefix, strings.ToLower(wallet), nonce)
}

// MessageIdempotencyKey derives the idempotency key for a message signing
// request. Messages carry no inherent sequence number, so the key is
// distinguished by the instant the request was issued.
func MessageIdempotencyKey(wallet string, at time.Time) string {
	return fmt.Sprintf("%s_msg_%s_%d", idempotencyPrefix, strings.ToLower(wallet), at.UnixMilli())
}
