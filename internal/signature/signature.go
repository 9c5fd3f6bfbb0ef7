package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned for any verification failure: malformed
// header, unknown scheme, stale timestamp, or digest mismatch. The
// boundary layer maps it to HTTP 400.
var ErrInvalid = errors.New("signature verification failed")

// DefaultTolerance bounds how old a signed timestamp may be before
// the payload is treated as a replay.
const DefaultTolerance = 5 * time.Minute

// header format: t=<unix seconds>,v1=<hex hmac>[,v1=...][,v0=...]
const (
	timestampKey = "t"
	schemeV1     = "v1"
)

// Sign computes the signature header value for a payload at the
// given time. The signed message is "<unix seconds>.<raw body>".
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("%s=%d,%s=%s", timestampKey, ts, schemeV1, hex.EncodeToString(mac.Sum(nil)))
}

// Verify checks that header carries a valid v1 signature over the
// raw, unparsed payload bytes within the tolerance window. Any JSON
// decoding before this call invalidates the check, so callers must
// pass the body exactly as received.
func Verify(payload []byte, header, secret string, tolerance time.Duration) error {
	return verifyAt(payload, header, secret, tolerance, time.Now())
}

func verifyAt(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: signing secret is empty", ErrInvalid)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	timestamp, candidates, err := parseHeader(header)
	if err != nil {
		return err
	}

	if now.Sub(time.Unix(timestamp, 0)) > tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance window", ErrInvalid)
	}

	expected := computeDigest(payload, secret, timestamp)
	for _, candidate := range candidates {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return fmt.Errorf("%w: no matching v1 signature", ErrInvalid)
}

// parseHeader splits the signature header into the signed timestamp
// and all v1 candidate digests. Unknown schemes are ignored so key
// rotation (multiple v1 entries) keeps working.
func parseHeader(header string) (int64, []string, error) {
	if strings.TrimSpace(header) == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrInvalid)
	}

	var timestamp int64 = -1
	var candidates []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case timestampKey:
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed timestamp %q", ErrInvalid, kv[1])
			}
			timestamp = parsed
		case schemeV1:
			candidates = append(candidates, kv[1])
		}
	}

	if timestamp < 0 {
		return 0, nil, fmt.Errorf("%w: header has no timestamp", ErrInvalid)
	}
	if len(candidates) == 0 {
		return 0, nil, fmt.Errorf("%w: header has no v1 signature", ErrInvalid)
	}
	return timestamp, candidates, nil
}

func computeDigest(payload []byte, secret string, timestamp int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return mac.Sum(nil)
}
