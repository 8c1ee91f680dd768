package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const fingerprintInfo = "dhmitm-session-fingerprint"

// DeriveKey derives length bytes from secret using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Fingerprint renders a short, human-comparable digest of a session.
// Both public values are bound into the HKDF info so the same secret in a
// different exchange yields a different fingerprint.
func Fingerprint(secret, initiatorPub, responderPub uint64) string {
	info := make([]byte, 0, len(fingerprintInfo)+16)
	info = append(info, fingerprintInfo...)
	info = binary.BigEndian.AppendUint64(info, initiatorPub)
	info = binary.BigEndian.AppendUint64(info, responderPub)

	key, err := DeriveKey([]byte(strconv.FormatUint(secret, 10)), nil, info, 8)
	if err != nil {
		// HKDF-SHA256 can produce 255*32 bytes; 8 never fails.
		panic(err)
	}
	h := hex.EncodeToString(key)
	groups := make([]string, 0, 4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return strings.Join(groups, " ")
}
