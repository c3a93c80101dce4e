// Package test provides utilities for testing. Do not import this into non-test code.
package test

import (
	"crypto/rand"
	"math/big"

	"github.com/shopspring/decimal"
)

// RandomString return a random alphanumeric string with length 10.
func RandomString() string {
	return RandomStringWithLen(10)
}

// RandomStringWithLen returns a random alphanumeric string with a specified length.
func RandomStringWithLen(length int) string {
	var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s := make([]rune, length)
	for i := range s {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		s[i] = letters[n.Int64()]
	}
	return string(s)
}

// RandomIntWithMax returns a random int in range [0, max].
func RandomIntWithMax(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	i := n.Int64()
	if i == 0 {
		i = 1
	}
	return int(i)
}

// RandomCurrency returns one of the corridor currencies.
func RandomCurrency() string {
	currencies := []string{"USD", "EUR", "GBP", "JPY", "AED", "INR"}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(currencies))))
	return currencies[n.Int64()]
}

// RandomAccount returns a participant account identifier for tests.
func RandomAccount() string {
	return "BANK-" + RandomStringWithLen(8)
}

// RandomAmount returns a positive two-decimal amount below max.
func RandomAmount(max int) decimal.Decimal {
	return decimal.NewFromInt(int64(RandomIntWithMax(max*100-1) + 1)).Div(decimal.NewFromInt(100))
}
