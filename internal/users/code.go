package users

import (
	"crypto/rand"

	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
)

const (
	referralCodeLength   = 8
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// newReferralCode returns a random 8-character code over A-Z0-9.
func newReferralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating referral code")
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}
