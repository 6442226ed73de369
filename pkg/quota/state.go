// Package quota implements UserHub API quota tracking and request gating.
// It monitors the X-RateLimit-Remaining and X-RateLimit-Reset headers to
// prevent project lockouts due to quota exhaustion.
package quota

import (
	"time"
)

// Redis keys for quota state storage.
const (
	RedisKeyRemaining      = "userhub:quota:remaining"
	RedisKeyResetTimestamp = "userhub:quota:reset_timestamp"
	RedisKeyLastUpdate     = "userhub:quota:last_update"
)

// Thresholds for quota decisions.
const (
	// ThresholdCritical blocks all requests when quota remaining falls below this value.
	// This prevents project lockouts by stopping requests before hitting the limit.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when quota remaining falls below this value.
	// This slows down request rate to stretch the remaining quota.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	// When quota remaining is at or above this value, no restrictions apply.
	ThresholdHealthy = 50
)

// State represents the current API quota state.
// This state is shared across all client instances via Redis.
type State struct {
	// Remaining is the number of requests allowed before the backend rejects calls.
	// Extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetAt is the timestamp when the quota window resets.
	// Taken from the X-RateLimit-Reset header (unix seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	// Used to detect stale state and determine if data should be refreshed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates whether the quota is in a healthy state.
	// True when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
// Stale state should be refreshed from Redis or response headers.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked due to critical quota level.
func (s *State) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled due to warning threshold.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the quota window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
