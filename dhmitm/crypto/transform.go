package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

var ErrDecode = errors.New("crypto: payload is not valid base64")

// Encrypt XORs each code point of text with the decimal digits of key and
// base64-encodes the UTF-8 of the result. It is reversible by anyone who knows
// key and offers no confidentiality.
func Encrypt(text string, key uint64) string {
	return base64.StdEncoding.EncodeToString([]byte(xorKeyStream(text, key)))
}

// Decrypt reverses Encrypt. Malformed input returns an error wrapping ErrDecode.
func Decrypt(encoded string, key uint64) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return xorKeyStream(string(raw), key), nil
}

// xorKeyStream works on code points, not bytes, so the key stays aligned with
// characters. A digit only flips the low six bits, which never moves a code
// point into or out of the surrogate range.
func xorKeyStream(text string, key uint64) string {
	stream := strconv.FormatUint(key, 10)
	runes := []rune(text)
	for i, r := range runes {
		runes[i] = r ^ rune(stream[i%len(stream)])
	}
	return string(runes)
}
