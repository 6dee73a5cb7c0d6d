package zoom

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Header names Zoom attaches to every webhook delivery.
const (
	SignatureHeader = "x-zm-signature"
	TimestampHeader = "x-zm-request-timestamp"
)

var (
	// ErrNoSecret means the shared secret is not configured, so neither the
	// handshake nor signature verification can be performed.
	ErrNoSecret = errors.New("zoom: secret token not configured")

	// ErrBadSignature means the delivery failed signature verification.
	ErrBadSignature = errors.New("zoom: signature mismatch")
)

// SignToken answers the url_validation challenge: hex HMAC-SHA256 of the
// plain token under the shared secret.
func SignToken(secret, plainToken string) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plainToken))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature recomputes the v0 signature over the raw request body and
// compares it with the header value in constant time.
//
// The signed message is "v0:{timestamp}:{body}" and the header carries
// "v0=" + hex(HMAC-SHA256(message)).
func VerifySignature(secret, timestamp, signature string, body []byte) error {
	if secret == "" {
		return ErrNoSecret
	}
	if timestamp == "" || signature == "" {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}
