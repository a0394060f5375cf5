package resilience

import "time"

// Circuit breaker default configuration values
const (
	DefaultCallTimeout              time.Duration = 3 * time.Second
	DefaultResetTimeout             time.Duration = 30 * time.Second
	DefaultVolumeThreshold          int           = 3
	DefaultErrorThresholdPercentage float64       = 50
	DefaultWindowDuration           time.Duration = 10 * time.Second
	DefaultWindowBuckets            int           = 10
	DefaultMaxHalfOpenCalls         uint32        = 1
)
