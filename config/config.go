/*
DESCRIPTION
  config.go defines the runtime configuration for the caption finder:
  the playlist URL, fetch/concurrency tuning, and logging destination.
  Defaults mirror the original CLI's behaviour. cmd/hlscaptions has
  flags for every field except MaxBodySize and the log rotation
  settings, which keep their defaults.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config holds the caption finder's runtime configuration.
package config

import (
	"time"

	"github.com/pkg/errors"
)

// Defaults, overridable by flag.
const (
	DefaultWorkers        = 4
	DefaultMaxAttempts    = 3
	DefaultRateLimit      = 10.0 // requests per second
	DefaultMaxBodySize    = 64 << 20
	DefaultLogPath        = "hlscaptions.log"
	DefaultLogMaxSizeMB   = 50
	DefaultLogMaxBackups  = 3
	DefaultLogMaxAgeDays  = 28
	DefaultMetricsAddress = ":9090"
)

// Config holds everything cmd/hlscaptions needs to run one invocation.
type Config struct {
	// PlaylistURL is the master or media .m3u8 URL to inspect. Required.
	PlaylistURL string

	// Workers is how many segments are fetched and decoded concurrently
	// within one poll tick.
	Workers int

	// MaxAttempts is how many times a single HTTP request is attempted,
	// the first try included, before the fetch is considered fatal.
	MaxAttempts int

	// RateLimit caps sustained requests per second to the origin.
	RateLimit float64

	// MaxBodySize bounds how many bytes of any one response are read.
	MaxBodySize int64

	// PollInterval overrides the live playlist's target duration as the
	// interval between polls, when non-zero.
	PollInterval time.Duration

	// LogPath is the rolling log file written via lumberjack. Logging
	// also always goes to stderr.
	LogPath string

	// LogMaxSizeMB, LogMaxBackups, LogMaxAgeDays configure the rolling
	// log file's rotation policy.
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Verbose enables debug-level logging.
	Verbose bool

	// MetricsEnabled starts a Prometheus /metrics endpoint on
	// MetricsAddress, serving counters of segments processed, captions
	// emitted and segment fetch errors. NAL units are not counted.
	MetricsEnabled bool
	MetricsAddress string
}

// Default returns a Config populated with this package's defaults. The
// caller must still set PlaylistURL.
func Default() Config {
	return Config{
		Workers:        DefaultWorkers,
		MaxAttempts:    DefaultMaxAttempts,
		RateLimit:      DefaultRateLimit,
		MaxBodySize:    DefaultMaxBodySize,
		LogPath:        DefaultLogPath,
		LogMaxSizeMB:   DefaultLogMaxSizeMB,
		LogMaxBackups:  DefaultLogMaxBackups,
		LogMaxAgeDays:  DefaultLogMaxAgeDays,
		MetricsAddress: DefaultMetricsAddress,
	}
}

// Validate checks c for missing or out-of-range fields, defaulting
// where a sensible default exists and erroring only where it doesn't
// (there's no reasonable default for an empty playlist URL).
func (c *Config) Validate() error {
	if c.PlaylistURL == "" {
		return errors.New("playlist URL is required")
	}
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.MetricsEnabled && c.MetricsAddress == "" {
		c.MetricsAddress = DefaultMetricsAddress
	}
	return nil
}
