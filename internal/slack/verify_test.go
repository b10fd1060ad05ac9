package slack

import (
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func signedHeader(secret string, at time.Time, body []byte) http.Header {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	header := http.Header{}
	header.Set(timestampHeader, timestamp)
	header.Set(signatureHeader, sign(secret, timestamp, body))
	return header
}

func TestVerifySignature(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	body := []byte(`{"type":"event_callback"}`)

	if err := VerifySignature("s3cret", signedHeader("s3cret", now, body), body, now); err != nil {
		t.Fatalf("VerifySignature() error = %v", err)
	}

	cases := []struct {
		name   string
		header http.Header
		body   []byte
	}{
		{name: "wrong secret", header: signedHeader("other", now, body), body: body},
		{name: "tampered body", header: signedHeader("s3cret", now, body), body: []byte(`{"type":"x"}`)},
		{name: "stale", header: signedHeader("s3cret", now.Add(-10*time.Minute), body), body: body},
		{name: "missing", header: http.Header{}, body: body},
	}
	for _, tc := range cases {
		err := VerifySignature("s3cret", tc.header, tc.body, now)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("%s: error = %v", tc.name, err)
		}
	}
}
