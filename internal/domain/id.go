package domain

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Record IDs are derived from seeds, so the same (creator, title) or
// (market, user) pair always addresses the same record. Deduplication falls
// out of the addressing scheme; the stores still enforce it explicitly.

// MarketID derives the deterministic ID for a market record.
func MarketID(creator, title string) string {
	return deriveID("market", NormalizeAddress(creator), title)
}

// OrderID derives the deterministic ID for an order record.
func OrderID(marketID, user string) string {
	return deriveID("order", marketID, NormalizeAddress(user))
}

func deriveID(seeds ...string) string {
	var buf []byte
	for i, s := range seeds {
		if i > 0 {
			buf = append(buf, 0x00)
		}
		buf = append(buf, s...)
	}
	return hex.EncodeToString(crypto.Keccak256(buf))
}

// NormalizeAddress lowercases a hex identity so address comparisons are
// case-insensitive. Capability checks throughout the ledger compare
// normalized forms.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// SameIdentity reports whether two hex identities refer to the same account.
func SameIdentity(a, b string) bool {
	return a != "" && NormalizeAddress(a) == NormalizeAddress(b)
}
