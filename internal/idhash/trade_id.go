package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(account_id|time|symbol|side|ordinal)
// ordinal is the position of the trade inside its account's history, which
// keeps identical fills at the same millisecond distinct.
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	accountID string,
	timeMs int64,
	symbol string,
	side string,
	ordinal int,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d",
		accountID,
		timeMs,
		symbol,
		side,
		ordinal,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
