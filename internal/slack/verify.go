package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	signatureHeader = "X-Slack-Signature"
	timestampHeader = "X-Slack-Request-Timestamp"
	signaturePrefix = "v0="
	maxClockSkew    = 5 * time.Minute
)

var ErrInvalidSignature = errors.New("invalid slack request signature")

// VerifySignature checks the v0 HMAC of body against the request headers.
func VerifySignature(secret string, header http.Header, body []byte, now time.Time) error {
	timestamp := header.Get(timestampHeader)
	signature := header.Get(signatureHeader)
	if timestamp == "" || signature == "" {
		return fmt.Errorf("%w: missing headers", ErrInvalidSignature)
	}
	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	skew := now.Sub(time.Unix(seconds, 0))
	if skew > maxClockSkew || skew < -maxClockSkew {
		return fmt.Errorf("%w: stale timestamp", ErrInvalidSignature)
	}
	expected := sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + timestamp + ":"))
	_, _ = mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
