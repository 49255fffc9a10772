package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

type entry struct {
	code     string
	issuedAt time.Time
}

// Store keeps pending one-time codes keyed by channel key (an email
// address or phone number). It is process-local and volatile: a restart
// loses all in-flight verifications.
//
// At most one code is pending per key; issuing again overwrites the
// previous code. Issue and check for the same key are atomic under the
// store mutex, so a check can never race an overwrite.
type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	codes map[string]entry
}

// NewStore returns a Store. A ttl of zero disables expiry: pending codes
// then stay valid until matched or overwritten.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		codes: make(map[string]entry),
	}
}

// IssueCode generates a fresh 6-digit code for key, replacing any prior
// pending code, and returns it for delivery.
func (s *Store) IssueCode(key string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.codes[key] = entry{code: code, issuedAt: time.Now()}
	s.mu.Unlock()

	return code, nil
}

// CheckCode reports whether submitted matches the pending code for key.
// A match consumes the entry (single use). A wrong guess leaves the
// entry untouched; only a later match or a reissue replaces it.
func (s *Store) CheckCode(key, submitted string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.codes[key]
	if !ok {
		return false
	}

	if s.ttl > 0 && time.Since(e.issuedAt) > s.ttl {
		delete(s.codes, key)
		return false
	}

	if e.code != submitted {
		return false
	}

	delete(s.codes, key)
	return true
}

// generateCode draws a uniform 6-digit code, zero-padded.
func generateCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
