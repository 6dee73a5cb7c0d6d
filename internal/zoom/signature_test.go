package zoom

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignToken(t *testing.T) {
	signed, err := SignToken("secret", "challenge-token")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("challenge-token"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signed)
}

func TestSignToken_NoSecret(t *testing.T) {
	_, err := SignToken("", "challenge-token")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func signBody(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"webinar.registration_created"}`)
	sig := signBody("secret", "1700000000", body)

	assert.NoError(t, VerifySignature("secret", "1700000000", sig, body))
}

func TestVerifySignature_Mismatch(t *testing.T) {
	body := []byte(`{"event":"webinar.registration_created"}`)
	sig := signBody("secret", "1700000000", body)

	assert.ErrorIs(t, VerifySignature("secret", "1700000001", sig, body), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("other-secret", "1700000000", sig, body), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("secret", "1700000000", sig, []byte(`tampered`)), ErrBadSignature)
}

func TestVerifySignature_MissingInputs(t *testing.T) {
	body := []byte(`{}`)
	sig := signBody("secret", "1700000000", body)

	assert.ErrorIs(t, VerifySignature("secret", "", sig, body), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("secret", "1700000000", "", body), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature("", "1700000000", sig, body), ErrNoSecret)
}
