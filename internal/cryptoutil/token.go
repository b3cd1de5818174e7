package cryptoutil

import (
	"bytes"
	"compress/flate"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultTokenTTL is used when Encode is called with a non-positive ttl.
const DefaultTokenTTL = 60 * time.Minute

// maxInflatedToken bounds decompression so a crafted token cannot expand without limit.
const maxInflatedToken = 64 << 10

// envelope is the signed document: the caller payload plus an absolute expiry.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Expires time.Time       `json:"expires"`
}

// TokenCodec signs, compresses and time-bounds opaque action payloads.
// Encoding is JSON -> "value.signature" (HMAC-SHA256) -> raw deflate -> base64url without padding.
// The secret is passed on every call and never retained.
type TokenCodec struct {
	now func() time.Time
}

// NewTokenCodec returns a codec using the system clock.
func NewTokenCodec() *TokenCodec {
	return &TokenCodec{now: time.Now}
}

// NewTokenCodecWithClock returns a codec using now as its clock (useful for tests).
func NewTokenCodecWithClock(now func() time.Time) *TokenCodec {
	return &TokenCodec{now: now}
}

// Encode wraps payload with an expiry of now+ttl and returns a URL-safe token.
func (c *TokenCodec) Encode(payload any, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("token secret is required")
	}
	if payload == nil {
		return "", errors.New("token payload is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}
	doc, err := json.Marshal(envelope{Data: data, Expires: c.now().UTC().Add(ttl)})
	if err != nil {
		return "", fmt.Errorf("marshal token envelope: %w", err)
	}

	signed := sign(string(doc), secret)

	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("deflate token: %w", err)
	}
	if _, err = zw.Write([]byte(signed)); err != nil {
		return "", fmt.Errorf("deflate token: %w", err)
	}
	if err = zw.Close(); err != nil {
		return "", fmt.Errorf("deflate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode verifies token and unmarshals its payload into dst.
// Any failure (malformed input, bad signature, expiry, payload shape) returns false;
// callers must treat false as "reject", never as anonymous.
func (c *TokenCodec) Decode(token, secret string, dst any) bool {
	if token == "" || secret == "" || dst == nil {
		return false
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	zr := flate.NewReader(bytes.NewReader(raw))
	defer zr.Close()
	inflated, err := io.ReadAll(io.LimitReader(zr, maxInflatedToken+1))
	if err != nil || len(inflated) > maxInflatedToken {
		return false
	}

	doc, ok := unsign(string(inflated), secret)
	if !ok {
		return false
	}

	var env envelope
	if err = json.Unmarshal([]byte(doc), &env); err != nil {
		return false
	}
	if env.Expires.IsZero() || !c.now().Before(env.Expires) {
		return false
	}
	if len(env.Data) == 0 {
		return false
	}
	return json.Unmarshal(env.Data, dst) == nil
}

// sign appends "." and the unpadded base64 HMAC-SHA256 of value.
func sign(value, secret string) string {
	return value + "." + mac(value, secret)
}

// unsign returns the value when its signature matches.
func unsign(signed, secret string) (string, bool) {
	i := strings.LastIndexByte(signed, '.')
	if i < 0 {
		return "", false
	}
	value, got := signed[:i], signed[i+1:]
	want := mac(value, secret)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return "", false
	}
	return value, true
}

func mac(value, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(value))
	return base64.RawStdEncoding.EncodeToString(h.Sum(nil))
}

// DeriveKey derives a purpose-bound secret from the deployment-wide key so one
// secret never signs two kinds of artifact.
func DeriveKey(master, purpose string) string {
	h := hmac.New(sha256.New, []byte(master))
	h.Write([]byte(purpose))
	return hex.EncodeToString(h.Sum(nil))
}
