package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanErrorFormat(t *testing.T) {
	err := NewScanErrorWithTarget(CodeNotPrivate, "Only private networks can be scanned", "8.8.8.8")
	assert.Equal(t, "[NOT_PRIVATE] Only private networks can be scanned (target: 8.8.8.8)", err.Error())

	noTarget := NewScanError(CodeConsentRequired, "consent missing")
	assert.Equal(t, "[CONSENT_REQUIRED] consent missing", noTarget.Error())
}

func TestScanErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := WrapScanError(CodeScanTool, "nmap failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"scan error", NewScanError(CodeTooLarge, "too large"), CodeTooLarge},
		{"store error", NewStoreError(CodeStoreQuery, "query failed"), CodeStoreQuery},
		{"config error", NewConfigFieldError(CodeConfiguration, "bad value", "port", -1), CodeConfiguration},
		{"plain error", fmt.Errorf("boom"), CodeUnknown},
		{"nil-ish", errors.New(""), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(NewScanError(CodeInvalidFormat, "bad")))
	assert.True(t, IsValidation(NewScanError(CodeNotPrivate, "public")))
	assert.True(t, IsValidation(NewScanError(CodeTooLarge, "big")))
	assert.False(t, IsValidation(NewScanError(CodeConsentRequired, "no consent")))
	assert.False(t, IsValidation(fmt.Errorf("other")))
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(ErrScanInProgress()))
	assert.True(t, IsRateLimit(ErrCooldownActive(10*time.Second)))
	assert.False(t, IsRateLimit(ErrConsentRequired()))
}

func TestErrCooldownActive(t *testing.T) {
	err := ErrCooldownActive(42 * time.Second)
	require.Equal(t, CodeCooldownActive, err.Code)
	assert.Contains(t, err.Message, "42 seconds")
	assert.Equal(t, 42*time.Second, err.RetryAfter)

	// Sub-second remainders round up so the caller never retries too early.
	short := ErrCooldownActive(300 * time.Millisecond)
	assert.Contains(t, short.Message, "1 seconds")
}

func TestErrScanTimeout(t *testing.T) {
	err := ErrScanTimeout("192.168.1.0/24", 300*time.Second)
	assert.Equal(t, CodeTimeout, err.Code)
	assert.Equal(t, "192.168.1.0/24", err.Target)
	assert.Contains(t, err.Message, "300 seconds")
}
