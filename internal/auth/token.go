package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"time"

	"budgetwatch/internal/core"
)

// TokenSigner mints and verifies opaque, time-limited tokens. A token is
// base64url(payload || issued-at) + "." + base64url(HMAC-SHA256(secret, body)).
// Verification checks the signature before trusting anything else, then the
// embedded issue time against maxAge.
type TokenSigner struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret []byte, maxAge time.Duration) *TokenSigner {
	return &TokenSigner{
		secret: secret,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Sign wraps payload with the current issue time and signs it.
func (s *TokenSigner) Sign(payload []byte) string {
	body := make([]byte, len(payload)+8)
	copy(body, payload)
	binary.BigEndian.PutUint64(body[len(payload):], uint64(s.now().Unix()))

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(body) + "." + enc.EncodeToString(mac.Sum(nil))
}

// Verify returns the payload of a token whose signature checks out and
// whose issue time is within maxAge. Any malformed, forged or stale token
// yields ErrInvalidToken.
func (s *TokenSigner) Verify(token string) ([]byte, error) {
	bodyPart, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return nil, core.ErrInvalidToken
	}

	enc := base64.RawURLEncoding
	body, err := enc.DecodeString(bodyPart)
	if err != nil || len(body) < 8 {
		return nil, core.ErrInvalidToken
	}
	sig, err := enc.DecodeString(sigPart)
	if err != nil {
		return nil, core.ErrInvalidToken
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return nil, core.ErrInvalidToken
	}

	issuedAt := time.Unix(int64(binary.BigEndian.Uint64(body[len(body)-8:])), 0)
	age := s.now().Sub(issuedAt)
	if age < 0 || age > s.maxAge {
		return nil, core.ErrInvalidToken
	}

	return body[:len(body)-8], nil
}
