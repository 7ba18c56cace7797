package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidHeader    = stderrors.New("stripe: invalid signature header")
	ErrNoValidSignature = stderrors.New("stripe: no valid signature")
	ErrTimestampExpired = stderrors.New("stripe: timestamp outside tolerance")
)

// ComputeSignature returns the hex v1 signature of payload signed at t.
func ComputeSignature(t time.Time, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(t.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader builds a Stripe-Signature header value.
func SignatureHeader(t time.Time, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), ComputeSignature(t, payload, secret))
}

// VerifySignature checks header against payload. A zero tolerance skips the
// timestamp window check.
func VerifySignature(payload []byte, header string, secret string, tolerance time.Duration, now time.Time) error {
	var timestamp int64
	var hasTimestamp bool
	signatures := make([][]byte, 0, 1)

	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}

		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrInvalidHeader
			}
			timestamp = ts
			hasTimestamp = true
		case "v1":
			sig, err := hex.DecodeString(v)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if !hasTimestamp || len(signatures) == 0 {
		return ErrInvalidHeader
	}

	signedAt := time.Unix(timestamp, 0)
	expected, _ := hex.DecodeString(ComputeSignature(signedAt, payload, secret))

	valid := false
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			valid = true
			break
		}
	}
	if !valid {
		return ErrNoValidSignature
	}

	if tolerance > 0 {
		age := now.Sub(signedAt)
		if age > tolerance || age < -tolerance {
			return ErrTimestampExpired
		}
	}

	return nil
}
