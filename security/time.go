package security

import "time"

// DefaultClockSkewGracePeriod is the grace period applied to expiry checks
// on browser-held cookies. It absorbs NTP drift between nodes without
// meaningfully extending a credential's lifetime.
const DefaultClockSkewGracePeriod = 5 * time.Second

// IsExpired checks whether expiresAt has passed, with the default clock
// skew grace period. A zero time means "no expiry".
func IsExpired(expiresAt time.Time) bool {
	return IsExpiredWithGracePeriod(expiresAt, DefaultClockSkewGracePeriod)
}

// IsExpiredWithGracePeriod checks expiry with a custom grace period.
func IsExpiredWithGracePeriod(expiresAt time.Time, gracePeriod time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}
	return time.Now().After(expiresAt.Add(gracePeriod))
}
