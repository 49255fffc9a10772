package verification

import "sync"

// Channel is a contact medium requiring independent verification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Tracker records which channel keys have passed their one-time-code
// challenge and have not yet been consumed by account creation. Like the
// OTP store it is process-local and volatile.
type Tracker struct {
	mu       sync.Mutex
	verified map[Channel]map[string]struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		verified: map[Channel]map[string]struct{}{
			ChannelEmail: {},
			ChannelPhone: {},
		},
	}
}

// MarkVerified records that key passed verification on channel.
func (t *Tracker) MarkVerified(channel Channel, key string) {
	t.mu.Lock()
	t.verified[channel][key] = struct{}{}
	t.mu.Unlock()
}

// IsVerified reports whether key is currently verified on channel.
func (t *Tracker) IsVerified(channel Channel, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.verified[channel][key]
	return ok
}

// Consume removes key from the verified set for channel. Called when
// account creation uses up the verification, or to roll back a signup
// that failed partway.
func (t *Tracker) Consume(channel Channel, key string) {
	t.mu.Lock()
	delete(t.verified[channel], key)
	t.mu.Unlock()
}
