// Package refnum generates the human-facing reference numbers printed on
// receipts and purchase orders. The wall-clock prefix is what pharmacists
// read over the phone; the random suffix keeps bursts of checkouts from
// colliding.
package refnum

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const stamp = "20060102150405"

func Invoice(t time.Time) string {
	return "INV" + t.Format(stamp) + "-" + suffix()
}

func PurchaseOrder(t time.Time) string {
	return "PO" + t.Format(stamp) + "-" + suffix()
}

func suffix() string {
	buf := make([]byte, 2)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%04d", time.Now().UnixNano()%10000)
	}
	return hex.EncodeToString(buf)
}
