package resilience

import "time"

// Config is the executor-wide policy. Operations overrides it per operation name;
// zero override fields inherit the base value.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	// AttemptTimeout bounds each try separately; zero leaves only the caller's deadline.
	AttemptTimeout time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	Operations map[string]OperationPolicy
}

type OperationPolicy struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	AttemptTimeout      time.Duration

	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 200 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// GenerationPolicy suits a slow, paid model call: few spaced-out retries, and a
// breaker that trips early and stays open long enough for the model to recover.
func GenerationPolicy() OperationPolicy {
	return OperationPolicy{
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     8 * time.Second,
		BreakerMinRequests:  3,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  2 * time.Minute,
	}
}

// PublishPolicy suits a fire-and-forget broker publish: quick retries across a
// reconnect and a breaker that only opens on a sustained outage.
func PublishPolicy() OperationPolicy {
	return OperationPolicy{
		RetryMaxAttempts:    4,
		RetryInitialBackoff: 50 * time.Millisecond,
		RetryMaxBackoff:     500 * time.Millisecond,
		AttemptTimeout:      2 * time.Second,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.8,
		BreakerOpenTimeout:  15 * time.Second,
	}
}

// forOperation resolves the effective policy of operation.
func (c Config) forOperation(operation string) Config {
	out := c
	out.Operations = nil
	p, ok := c.Operations[operation]
	if !ok {
		return out
	}
	if p.RetryMaxAttempts > 0 {
		out.RetryMaxAttempts = p.RetryMaxAttempts
	}
	if p.RetryInitialBackoff > 0 {
		out.RetryInitialBackoff = p.RetryInitialBackoff
	}
	if p.RetryMaxBackoff > 0 {
		out.RetryMaxBackoff = p.RetryMaxBackoff
	}
	if p.AttemptTimeout > 0 {
		out.AttemptTimeout = p.AttemptTimeout
	}
	if p.BreakerMinRequests > 0 {
		out.BreakerMinRequests = p.BreakerMinRequests
	}
	if p.BreakerFailureRatio > 0 {
		out.BreakerFailureRatio = p.BreakerFailureRatio
	}
	if p.BreakerOpenTimeout > 0 {
		out.BreakerOpenTimeout = p.BreakerOpenTimeout
	}
	return out.normalize()
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.AttemptTimeout < 0 {
		out.AttemptTimeout = 0
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}
