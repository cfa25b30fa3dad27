package was

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/webscan-io/was/v2/internal/constants"
)

// RetryPhase identifies where a call stands in its retry lifecycle.
type RetryPhase string

const (
	// PhaseAttempting means a network attempt is in flight or about to start.
	PhaseAttempting RetryPhase = "attempting"

	// PhaseBackoff means the last attempt failed retryably and the caller
	// should wait for State.Delay before the next attempt.
	PhaseBackoff RetryPhase = "backoff"

	// PhaseSucceeded is terminal: an attempt returned a success status.
	PhaseSucceeded RetryPhase = "succeeded"

	// PhaseExhaustedThrottle is terminal: the throttle budget ran out with
	// the service still answering 429.
	PhaseExhaustedThrottle RetryPhase = "exhausted-throttle"

	// PhaseExhaustedNetwork is terminal: the transient budget ran out on
	// network errors or 5xx responses.
	PhaseExhaustedNetwork RetryPhase = "exhausted-network"

	// PhaseFailed is terminal: an attempt returned a non-retryable failure.
	PhaseFailed RetryPhase = "failed"
)

// Terminal reports whether the phase ends the retry loop.
func (p RetryPhase) Terminal() bool {
	switch p {
	case PhaseSucceeded, PhaseExhaustedThrottle, PhaseExhaustedNetwork, PhaseFailed:
		return true
	case PhaseAttempting, PhaseBackoff:
		return false
	default:
		return false
	}
}

// OutcomeClass classifies the result of a single network attempt.
type OutcomeClass string

const (
	// OutcomeSuccess is a 2xx response.
	OutcomeSuccess OutcomeClass = "success"

	// OutcomeThrottled is an HTTP 429 response.
	OutcomeThrottled OutcomeClass = "throttled"

	// OutcomeTransient is a network error or a 5xx response.
	OutcomeTransient OutcomeClass = "transient"

	// OutcomeFatal is a non-retryable failure, typically a 4xx response.
	OutcomeFatal OutcomeClass = "fatal"
)

// AttemptOutcome is the machine's view of one finished network attempt.
// RetryAfter carries the server's Retry-After hint when one was present on a
// throttled response; zero means no hint.
type AttemptOutcome struct {
	Class      OutcomeClass
	RetryAfter time.Duration
}

// RetryPolicy bounds the retry loop. ThrottleMax and TransientMax are total
// attempt budgets per failure class, counting the first attempt.
type RetryPolicy struct {
	// ThrottleMax is the total number of attempts allowed while the service
	// answers 429.
	ThrottleMax int

	// TransientMax is the total number of attempts allowed across network
	// errors and 5xx responses. It is deliberately smaller than ThrottleMax:
	// a throttled service recovers on its own schedule, a broken one rarely
	// does.
	TransientMax int

	// WaitMin seeds the exponential backoff curve.
	WaitMin time.Duration

	// WaitMax caps both the backoff curve and any Retry-After hint.
	WaitMax time.Duration

	// IgnoreRetryAfter disables honoring the server's Retry-After hint on
	// throttled responses.
	IgnoreRetryAfter bool
}

// DefaultRetryPolicy returns the policy used when a client is built without
// an explicit one: five total attempts on throttling with a 2s doubling
// backoff capped at 30s, three total attempts on transient failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		ThrottleMax:  constants.DefaultThrottleRetryMax,
		TransientMax: constants.DefaultTransientRetryMax,
		WaitMin:      constants.DefaultRetryWaitMin,
		WaitMax:      constants.DefaultRetryWaitMax,
	}
}

// normalized fills zero fields with defaults so a partially specified policy
// stays usable.
func (p RetryPolicy) normalized() RetryPolicy {
	defaults := DefaultRetryPolicy()

	if p.ThrottleMax <= 0 {
		p.ThrottleMax = defaults.ThrottleMax
	}

	if p.TransientMax <= 0 {
		p.TransientMax = defaults.TransientMax
	}

	if p.WaitMin <= 0 {
		p.WaitMin = defaults.WaitMin
	}

	if p.WaitMax <= 0 {
		p.WaitMax = defaults.WaitMax
	}

	return p
}

// backoffDelay computes the wait before retry number (retryCount+1) of a
// class. It delegates the exponential curve to retryablehttp.DefaultBackoff
// with a nil response, which makes it a pure function of the inputs.
func (p RetryPolicy) backoffDelay(retryCount int, retryAfter time.Duration) time.Duration {
	if !p.IgnoreRetryAfter && retryAfter > 0 {
		if retryAfter > p.WaitMax {
			return p.WaitMax
		}

		return retryAfter
	}

	return retryablehttp.DefaultBackoff(p.WaitMin, p.WaitMax, retryCount, nil)
}

// RetryState is the full state of one call's retry loop. Attempt counts
// every finished network attempt; ThrottleCount and TransientCount count
// failures per class. Delay is meaningful only in PhaseBackoff.
type RetryState struct {
	Phase          RetryPhase
	Attempt        int
	ThrottleCount  int
	TransientCount int
	Delay          time.Duration
}

// NewRetryState returns the state for a call that has not attempted yet.
func NewRetryState() RetryState {
	return RetryState{Phase: PhaseAttempting}
}

// NextRetryState advances the retry machine by one attempt outcome. It is a
// pure function: no clocks, no sleeping, no I/O. The caller owns the loop,
// sleeping state.Delay whenever the returned phase is PhaseBackoff and
// stopping on any terminal phase. Terminal states absorb further outcomes
// unchanged.
func NextRetryState(policy RetryPolicy, state RetryState, outcome AttemptOutcome) RetryState {
	if state.Phase.Terminal() {
		return state
	}

	policy = policy.normalized()

	next := state
	next.Attempt++
	next.Delay = 0

	switch outcome.Class {
	case OutcomeSuccess:
		next.Phase = PhaseSucceeded

	case OutcomeThrottled:
		next.ThrottleCount++
		if next.ThrottleCount >= policy.ThrottleMax {
			next.Phase = PhaseExhaustedThrottle

			return next
		}

		next.Phase = PhaseBackoff
		next.Delay = policy.backoffDelay(next.ThrottleCount-1, outcome.RetryAfter)

	case OutcomeTransient:
		next.TransientCount++
		if next.TransientCount >= policy.TransientMax {
			next.Phase = PhaseExhaustedNetwork

			return next
		}

		next.Phase = PhaseBackoff
		next.Delay = policy.backoffDelay(next.TransientCount-1, 0)

	case OutcomeFatal:
		next.Phase = PhaseFailed

	default:
		next.Phase = PhaseFailed
	}

	return next
}
