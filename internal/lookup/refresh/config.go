package refresh

import "time"

// Config controls the stale-entry refresh loop.
type Config struct {
	Enabled      bool
	TopN         int
	PollInterval time.Duration
	CacheTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		TopN:         100,
		PollInterval: 6 * time.Hour,
		CacheTTL:     30 * 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.TopN <= 0 {
		c.TopN = defaults.TopN
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaults.CacheTTL
	}
	return c
}
