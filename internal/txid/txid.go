// Package txid derives stable transaction identifiers. Two raw rows that
// normalize to the same account, date, amount, and description hash get the
// same ID and are therefore the same transaction.
package txid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Short IDs keep ledgers and logs readable while staying collision-safe at
// personal-ledger scale (48 bits of hash).
const idLen = 12

// New returns the stable ID for a normalized transaction.
func New(account string, date time.Time, amount decimal.Decimal, description string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(account))))
	h.Write([]byte{0})
	h.Write([]byte(date.Format("2006-01-02")))
	h.Write([]byte{0})
	h.Write([]byte(amount.String()))
	h.Write([]byte{0})
	h.Write([]byte(descHash(description)))
	return hex.EncodeToString(h.Sum(nil))[:idLen]
}

// descHash collapses a raw description into a whitespace-insensitive,
// case-insensitive fingerprint so cosmetic formatting differences between
// exports do not split identity.
func descHash(description string) string {
	fields := strings.Fields(strings.ToLower(description))
	sum := sha256.Sum256([]byte(strings.Join(fields, " ")))
	return hex.EncodeToString(sum[:])
}
