package pkg

import (
	"math/rand"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func RandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// VoucherCode builds an issued voucher code such as VCH-7KQ2M9XA.
func VoucherCode(prefix string) string {
	return prefix + "-" + RandomString(8)
}
