package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const txCodeTimeFormat = "20060102150405"

// GenerateTransactionCode produces a unique, human-legible ledger code of the
// form PAY-20240131093045-1A2B3C4D. The timestamp keeps codes sortable and
// legible; the crypto/rand suffix makes collisions effectively impossible
// even for codes generated in the same second.
func GenerateTransactionCode() string {
	return fmt.Sprintf("PAY-%s-%s", time.Now().UTC().Format(txCodeTimeFormat), strings.ToUpper(RandomHex(4)))
}

// RandomHex returns a hex string of 2*lengthInBytes characters read from the
// platform CSPRNG.
func RandomHex(lengthInBytes int) string {
	b := make([]byte, lengthInBytes)
	// rand.Read never fails on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
