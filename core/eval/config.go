package eval

import "time"

// SessionConfig is the constructor-time configuration of spec §6.1.
// core/session loads this from YAML/validator on top of what a caller
// supplies programmatically.
type SessionConfig struct {
	Files          map[string][]byte
	Env            map[string]string
	Cwd            string
	NetworkEnabled bool
	Limits         LimitOverrides
}

// LimitOverrides supplies zero-value-means-default overrides for the
// spec §5 limit table.
type LimitOverrides struct {
	MaxStatements     int
	MaxCallDepth      int
	MaxLoopIterations int
	MaxWallClock      time.Duration
	MaxVFSBytes       int64
	MaxPipeBuffer     int
}
