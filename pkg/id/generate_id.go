package id

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
// The bytes are a random (v4) UUID.
func NewID32() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// ContractAddress derives the token contract address for the seq-th issuance
// against loanID: "0x" followed by the first 20 bytes of sha256("loanID:seq").
func ContractAddress(loanID string, seq int) string {
	sum := sha256.Sum256([]byte(loanID + ":" + strconv.Itoa(seq)))
	return "0x" + hex.EncodeToString(sum[:20])
}

// VerifyContractAddress reports whether addr is the derivation for (loanID, seq).
func VerifyContractAddress(addr, loanID string, seq int) bool {
	return strings.EqualFold(addr, ContractAddress(loanID, seq))
}
