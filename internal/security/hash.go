package security

import "golang.org/x/crypto/bcrypt"

// Hasher produces and checks one-way digests for passwords and PINs.
// It is stateless and safe for concurrent use; construct one at startup
// and inject it wherever credentials are handled.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher at the default bcrypt cost.
func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// Hash returns a salted bcrypt digest of the secret.
func (h *Hasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	return string(digest), err
}

// Verify reports whether secret matches digest. A malformed digest
// verifies as false rather than erroring.
func (h *Hasher) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
