package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Verifier checks webhook payload authenticity. The digest is computed over
// the exact bytes received; callers must not reserialize the body first.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify reports whether claim is the base64-encoded HMAC-SHA256 of payload
// under the shared secret. Malformed claims simply fail the comparison.
func (v *Verifier) Verify(payload []byte, claim string) bool {
	if claim == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(claim), []byte(expected))
}
