// Package autocode assigns, removes and generates users' auto-codes,
// gating every change through the spam-prevention rate limiter.
package autocode

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// CodeLength is the number of digits in a lock code.
const CodeLength = 4

// HiddenCode replaces a code in any message that must not reveal it.
const HiddenCode = "****"

// IsValidCode reports whether s is exactly four ASCII decimal digits.
// Leading zeros are significant: "0007" is valid.
func IsValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n < 10000
}

// GenerateCode returns a uniformly random code in "0000".."9999".
func GenerateCode() string {
	return fmt.Sprintf("%04d", rand.IntN(10000))
}
