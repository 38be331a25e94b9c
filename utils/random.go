package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const alphanumeric = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRandomString returns n characters from an unambiguous
// upper-case alphabet.
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b)
}

// GenerateInvoiceNumber returns INV-YYYYMMDD-XXXXXX.
func GenerateInvoiceNumber(now time.Time) string {
	return "INV-" + now.Format("20060102") + "-" + GenerateRandomString(6)
}

// GenerateTicketNumber returns TKT-YYMMDD-XXXX.
func GenerateTicketNumber(now time.Time) string {
	return "TKT-" + now.Format("060102") + "-" + GenerateRandomString(4)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and joins its words with dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
