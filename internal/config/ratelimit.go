package config

import "time"

// LoginLimitConfig tunes the per-IP throttle on the credential
// endpoints. Refill is expressed as tokens per second.
type LoginLimitConfig struct {
	Enabled  bool
	Capacity int
	Refill   float64
	TTL      time.Duration
}

// LoadLoginLimitConfig reads the throttle settings. The defaults allow
// a burst of 10 attempts, refilling one every 6 seconds.
func LoadLoginLimitConfig() LoginLimitConfig {
	every := envDur("LOGIN_LIMIT_REFILL_EVERY", 6*time.Second)
	if every <= 0 {
		every = 6 * time.Second
	}
	cfg := LoginLimitConfig{
		Enabled:  envBool("LOGIN_LIMIT_ENABLED", true),
		Capacity: envInt("LOGIN_LIMIT_CAPACITY", 10),
		Refill:   1.0 / every.Seconds(),
		TTL:      envDur("LOGIN_LIMIT_TTL", 10*time.Minute),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.TTL < time.Minute {
		cfg.TTL = time.Minute
	}
	return cfg
}
