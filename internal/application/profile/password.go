package profile

import (
	"crypto/rand"
	"math/big"
)

const (
	temporaryPasswordLength   = 8
	temporaryPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateTemporaryPassword returns a random alphanumeric password used only
// to satisfy account creation.
func GenerateTemporaryPassword() (string, error) {
	max := big.NewInt(int64(len(temporaryPasswordAlphabet)))
	buf := make([]byte, temporaryPasswordLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = temporaryPasswordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
