// Package config loads concierge settings from flags, environment, .env and
// the optional .concierge.yaml. Defaults are defined here and nowhere else.
package config

import "time"

const (
	// EnvPrefix prefixes every environment override, e.g. CONCIERGE_SERVER_ADDR.
	EnvPrefix = "CONCIERGE"
	// ConfigName is the config file base name searched in the working directory
	// and the global config directory.
	ConfigName = ".concierge"
)

// Server
const (
	DefaultServerAddr = "127.0.0.1:8086"
	DefaultAPIURL     = "http://127.0.0.1:8086"
	DefaultAPITimeout = 10 * time.Second
)

// Storage
const (
	// DefaultListingLag is how long a created task stays out of the task list.
	DefaultListingLag = 1500 * time.Millisecond
)

// Submission
const (
	DefaultMaxAttempts   = 10
	DefaultRetryInterval = time.Second
	DefaultDebounce      = 100 * time.Millisecond
)

// Logging
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)
