package ledger

import (
	"crypto/rand"
	"encoding/base64"
)

func randomBytes(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

func base64Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
