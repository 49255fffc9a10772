package otp

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueCodeFormat(t *testing.T) {
	s := NewStore(0)

	code, err := s.IssueCode("a@x.com")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestCheckCodeSingleUse(t *testing.T) {
	s := NewStore(0)

	code, err := s.IssueCode("a@x.com")
	require.NoError(t, err)

	assert.True(t, s.CheckCode("a@x.com", code))
	assert.False(t, s.CheckCode("a@x.com", code), "a matched code must be consumed")
}

func TestWrongGuessKeepsPendingCode(t *testing.T) {
	s := NewStore(0)

	code, err := s.IssueCode("+1555")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	assert.False(t, s.CheckCode("+1555", wrong))
	assert.True(t, s.CheckCode("+1555", code), "a wrong guess must not invalidate the pending code")
}

func TestReissueInvalidatesPreviousCode(t *testing.T) {
	s := NewStore(0)

	first, err := s.IssueCode("a@x.com")
	require.NoError(t, err)

	second, err := s.IssueCode("a@x.com")
	require.NoError(t, err)

	if first != second {
		assert.False(t, s.CheckCode("a@x.com", first), "old code must not validate after reissue")
	}
	assert.True(t, s.CheckCode("a@x.com", second))
}

func TestUnknownKeyFails(t *testing.T) {
	s := NewStore(0)
	assert.False(t, s.CheckCode("nobody@x.com", "123456"))
}

func TestExpiredCodeRejected(t *testing.T) {
	s := NewStore(time.Nanosecond)

	code, err := s.IssueCode("a@x.com")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	assert.False(t, s.CheckCode("a@x.com", code))
}

func TestZeroTTLNeverExpires(t *testing.T) {
	s := NewStore(0)

	code, err := s.IssueCode("a@x.com")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	assert.True(t, s.CheckCode("a@x.com", code))
}
