package crypto

import "math/bits"

// ModPow computes base^exponent mod modulus by square-and-multiply.
// It returns 0 when modulus is 1 and panics when modulus is 0.
func ModPow(base, exponent, modulus uint64) uint64 {
	if modulus == 0 {
		panic("crypto: ModPow with zero modulus")
	}
	if modulus == 1 {
		return 0
	}

	result := uint64(1)
	base %= modulus
	for exponent > 0 {
		if exponent&1 == 1 {
			result = mulMod(result, base, modulus)
		}
		base = mulMod(base, base, modulus)
		exponent >>= 1
	}
	return result
}

// mulMod returns a*b mod m without overflow. a and b must already be < m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}
