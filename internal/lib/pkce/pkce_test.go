package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVerifier(t *testing.T) {
	seen := make(map[string]bool)

	for range 10 {
		verifier, err := NewVerifier()
		require.NoError(t, err)

		// 32 байта в base64url без набивки — ровно 43 символа
		assert.Len(t, verifier, 43)
		assert.NotContains(t, verifier, "=")
		assert.NotContains(t, verifier, "+")
		assert.NotContains(t, verifier, "/")
		assert.False(t, seen[verifier], "verifier must be unique")
		seen[verifier] = true
	}
}

func TestChallenge(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	got := Challenge(verifier)

	sum := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "=")
}

func TestEncodeDecodeState(t *testing.T) {
	tests := []struct {
		name     string
		flow     string
		verifier string
	}{
		{
			name:     "web flow",
			flow:     "web",
			verifier: "abc123_-XYZ",
		},
		{
			name:     "mobile flow",
			flow:     "mobile",
			verifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
		},
		{
			name:     "empty flow tag survives roundtrip",
			flow:     "",
			verifier: "v",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := EncodeState(tt.flow, tt.verifier)
			assert.True(t, strings.Contains(state, StateDelimiter))

			flow, verifier, err := DecodeState(state)
			require.NoError(t, err)
			assert.Equal(t, tt.flow, flow)
			assert.Equal(t, tt.verifier, verifier)
		})
	}
}

func TestDecodeState_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		state string
	}{
		{
			name:  "no delimiter",
			state: "webonly",
		},
		{
			name:  "empty verifier",
			state: "web|",
		},
		{
			name:  "empty state",
			state: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeState(tt.state)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestGeneratedStateRoundTrip(t *testing.T) {
	verifier, err := NewVerifier()
	require.NoError(t, err)

	state := EncodeState("mobile", verifier)
	flow, got, err := DecodeState(state)
	require.NoError(t, err)
	assert.Equal(t, "mobile", flow)
	assert.Equal(t, verifier, got)
}
