package acidlist

import "time"

const defaultSweepInterval = 500 * time.Millisecond

// Logger is the minimal structured-logging surface acidlist needs from a
// caller-supplied logger; *log.Logger satisfies it, as does any adapter
// around a richer logger a caller already has wired up. By default the
// sweeper logs nothing - there is no third-party logging dependency this
// package's own corpus of reference code reaches for (see DESIGN.md), so
// callers wanting visibility into sweep cycles opt in explicitly.
type Logger interface {
	Printf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Option configures a List at construction time.
type Option func(*listConfig)

type listConfig struct {
	sweepInterval time.Duration
	logger        Logger
}

func defaultConfig() listConfig {
	return listConfig{
		sweepInterval: defaultSweepInterval,
		logger:        noopLogger{},
	}
}

// WithSweepInterval overrides the background sweeper's cadence between
// sweep passes. The spec's default is 500ms; tests that want to observe a
// sweep deterministically can shrink this.
func WithSweepInterval(d time.Duration) Option {
	return func(c *listConfig) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithLogger attaches a logger that the sweeper uses to trace its cycles.
func WithLogger(l Logger) Option {
	return func(c *listConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
