package signature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func TestVerifyValidSignature(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"customer.created"}`)
	header := Sign(body, testSecret, time.Now())

	err := Verify(body, header, testSecret, DefaultTolerance)
	assert.NoError(t, err)
}

func TestVerifyMutatedBody(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"customer.created"}`)
	header := Sign(body, testSecret, time.Now())

	mutated := make([]byte, len(body))
	copy(mutated, body)
	mutated[len(mutated)/2] ^= 0x01

	err := Verify(mutated, header, testSecret, DefaultTolerance)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyWrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	header := Sign(body, "whsec_other", time.Now())

	err := Verify(body, header, testSecret, DefaultTolerance)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyStaleTimestamp(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	signedAt := time.Now().Add(-10 * time.Minute)
	header := Sign(body, testSecret, signedAt)

	err := Verify(body, header, testSecret, DefaultTolerance)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "tolerance")
}

func TestVerifyWithinCustomTolerance(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	signedAt := time.Now().Add(-10 * time.Minute)
	header := Sign(body, testSecret, signedAt)

	err := Verify(body, header, testSecret, 15*time.Minute)
	assert.NoError(t, err)
}

func TestVerifyMalformedHeaders(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)

	cases := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"no timestamp", "v1=deadbeef"},
		{"no v1 entry", "t=1700000000,v0=deadbeef"},
		{"garbage timestamp", "t=soon,v1=deadbeef"},
		{"no separators", "not-a-signature-header"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(body, tc.header, testSecret, DefaultTolerance)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestVerifyIgnoresUnknownSchemes(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	header := Sign(body, testSecret, time.Now()) + ",v0=0000"

	err := Verify(body, header, testSecret, DefaultTolerance)
	assert.NoError(t, err)
}

func TestVerifyAtFixedClock(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	now := time.Unix(1700000000, 0)
	header := Sign(body, testSecret, now)

	// Exactly at the edge of the window still verifies.
	err := verifyAt(body, header, testSecret, 5*time.Minute, now.Add(5*time.Minute))
	assert.NoError(t, err)

	err = verifyAt(body, header, testSecret, 5*time.Minute, now.Add(5*time.Minute+time.Second))
	assert.ErrorIs(t, err, ErrInvalid)
}
