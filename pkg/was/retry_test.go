package was

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drive feeds a sequence of outcomes through the machine and returns the
// final state plus every backoff delay observed along the way.
func drive(policy RetryPolicy, outcomes []AttemptOutcome) (RetryState, []time.Duration) {
	state := NewRetryState()

	var delays []time.Duration

	for _, outcome := range outcomes {
		state = NextRetryState(policy, state, outcome)
		if state.Phase == PhaseBackoff {
			delays = append(delays, state.Delay)
		}
	}

	return state, delays
}

func repeatOutcomes(class OutcomeClass, n int) []AttemptOutcome {
	outcomes := make([]AttemptOutcome, n)
	for i := range outcomes {
		outcomes[i] = AttemptOutcome{Class: class}
	}

	return outcomes
}

func TestNewRetryState(t *testing.T) {
	t.Parallel()

	state := NewRetryState()

	assert.Equal(t, PhaseAttempting, state.Phase)
	assert.Equal(t, 0, state.Attempt)
	assert.Equal(t, 0, state.ThrottleCount)
	assert.Equal(t, 0, state.TransientCount)
	assert.Equal(t, time.Duration(0), state.Delay)
}

func TestNextRetryStateSuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	state := NextRetryState(DefaultRetryPolicy(), NewRetryState(), AttemptOutcome{Class: OutcomeSuccess})

	assert.Equal(t, PhaseSucceeded, state.Phase)
	assert.Equal(t, 1, state.Attempt)
	assert.True(t, state.Phase.Terminal())
}

func TestNextRetryStateFatalFirstAttempt(t *testing.T) {
	t.Parallel()

	state := NextRetryState(DefaultRetryPolicy(), NewRetryState(), AttemptOutcome{Class: OutcomeFatal})

	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, 1, state.Attempt)
}

func TestNextRetryStateThrottleExhaustion(t *testing.T) {
	t.Parallel()

	policy := DefaultRetryPolicy()

	state, delays := drive(policy, repeatOutcomes(OutcomeThrottled, policy.ThrottleMax))

	assert.Equal(t, PhaseExhaustedThrottle, state.Phase)
	assert.Equal(t, policy.ThrottleMax, state.Attempt)
	assert.Equal(t, policy.ThrottleMax, state.ThrottleCount)

	// Four backoffs separate five attempts, doubling from WaitMin.
	require.Len(t, delays, policy.ThrottleMax-1)
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, delays)
}

func TestNextRetryStateThrottleThenSuccess(t *testing.T) {
	t.Parallel()

	outcomes := []AttemptOutcome{
		{Class: OutcomeThrottled},
		{Class: OutcomeThrottled},
		{Class: OutcomeSuccess},
	}

	state, delays := drive(DefaultRetryPolicy(), outcomes)

	assert.Equal(t, PhaseSucceeded, state.Phase)
	assert.Equal(t, 3, state.Attempt)
	assert.Equal(t, 2, state.ThrottleCount)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestNextRetryStateTransientExhaustion(t *testing.T) {
	t.Parallel()

	policy := DefaultRetryPolicy()

	state, delays := drive(policy, repeatOutcomes(OutcomeTransient, policy.TransientMax))

	assert.Equal(t, PhaseExhaustedNetwork, state.Phase)
	assert.Equal(t, policy.TransientMax, state.Attempt)
	assert.Equal(t, policy.TransientMax, state.TransientCount)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestNextRetryStateTransientThenSuccess(t *testing.T) {
	t.Parallel()

	outcomes := []AttemptOutcome{
		{Class: OutcomeTransient},
		{Class: OutcomeSuccess},
	}

	state, _ := drive(DefaultRetryPolicy(), outcomes)

	assert.Equal(t, PhaseSucceeded, state.Phase)
	assert.Equal(t, 2, state.Attempt)
	assert.Equal(t, 1, state.TransientCount)
}

func TestNextRetryStateMixedClassesCountSeparately(t *testing.T) {
	t.Parallel()

	// Two transient failures followed by throttling. The transient budget
	// has one attempt left, so the throttle counter starts fresh and runs
	// its own budget down.
	outcomes := []AttemptOutcome{
		{Class: OutcomeTransient},
		{Class: OutcomeTransient},
		{Class: OutcomeThrottled},
		{Class: OutcomeThrottled},
		{Class: OutcomeThrottled},
		{Class: OutcomeThrottled},
		{Class: OutcomeThrottled},
	}

	state, _ := drive(DefaultRetryPolicy(), outcomes)

	assert.Equal(t, PhaseExhaustedThrottle, state.Phase)
	assert.Equal(t, 7, state.Attempt)
	assert.Equal(t, 2, state.TransientCount)
	assert.Equal(t, 5, state.ThrottleCount)
}

func TestNextRetryStateRetryAfterHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		policy     RetryPolicy
		retryAfter time.Duration
		expected   time.Duration
	}{
		{
			name:       "hint overrides backoff curve",
			policy:     DefaultRetryPolicy(),
			retryAfter: 7 * time.Second,
			expected:   7 * time.Second,
		},
		{
			name:       "hint capped at wait max",
			policy:     DefaultRetryPolicy(),
			retryAfter: 10 * time.Minute,
			expected:   30 * time.Second,
		},
		{
			name:       "no hint falls back to curve",
			policy:     DefaultRetryPolicy(),
			retryAfter: 0,
			expected:   2 * time.Second,
		},
		{
			name: "hint ignored when disabled",
			policy: RetryPolicy{
				ThrottleMax:      5,
				TransientMax:     3,
				WaitMin:          2 * time.Second,
				WaitMax:          30 * time.Second,
				IgnoreRetryAfter: true,
			},
			retryAfter: 7 * time.Second,
			expected:   2 * time.Second,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			outcome := AttemptOutcome{Class: OutcomeThrottled, RetryAfter: testCase.retryAfter}

			state := NextRetryState(testCase.policy, NewRetryState(), outcome)

			require.Equal(t, PhaseBackoff, state.Phase)
			assert.Equal(t, testCase.expected, state.Delay)
		})
	}
}

func TestNextRetryStateTerminalAbsorbs(t *testing.T) {
	t.Parallel()

	terminal := []RetryPhase{
		PhaseSucceeded,
		PhaseExhaustedThrottle,
		PhaseExhaustedNetwork,
		PhaseFailed,
	}

	for _, phase := range terminal {
		t.Run(string(phase), func(t *testing.T) {
			t.Parallel()

			state := RetryState{Phase: phase, Attempt: 4}

			next := NextRetryState(DefaultRetryPolicy(), state, AttemptOutcome{Class: OutcomeThrottled})

			assert.Equal(t, state, next)
		})
	}
}

func TestNextRetryStateDelayClearedOnTerminal(t *testing.T) {
	t.Parallel()

	state := RetryState{Phase: PhaseBackoff, Attempt: 1, ThrottleCount: 1, Delay: 2 * time.Second}

	next := NextRetryState(DefaultRetryPolicy(), state, AttemptOutcome{Class: OutcomeSuccess})

	assert.Equal(t, PhaseSucceeded, next.Phase)
	assert.Equal(t, time.Duration(0), next.Delay)
}

func TestNextRetryStateSingleAttemptBudgets(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{
		ThrottleMax:  1,
		TransientMax: 1,
		WaitMin:      time.Second,
		WaitMax:      time.Second,
	}

	throttled := NextRetryState(policy, NewRetryState(), AttemptOutcome{Class: OutcomeThrottled})
	assert.Equal(t, PhaseExhaustedThrottle, throttled.Phase)
	assert.Equal(t, 1, throttled.Attempt)

	transient := NextRetryState(policy, NewRetryState(), AttemptOutcome{Class: OutcomeTransient})
	assert.Equal(t, PhaseExhaustedNetwork, transient.Phase)
	assert.Equal(t, 1, transient.Attempt)
}

func TestRetryPolicyNormalizedDefaults(t *testing.T) {
	t.Parallel()

	// A zero policy behaves like the default one.
	state := NextRetryState(RetryPolicy{}, NewRetryState(), AttemptOutcome{Class: OutcomeThrottled})

	assert.Equal(t, PhaseBackoff, state.Phase)
	assert.Equal(t, 2*time.Second, state.Delay)
}

func TestRetryPhaseTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, PhaseAttempting.Terminal())
	assert.False(t, PhaseBackoff.Terminal())
	assert.True(t, PhaseSucceeded.Terminal())
	assert.True(t, PhaseExhaustedThrottle.Terminal())
	assert.True(t, PhaseExhaustedNetwork.Terminal())
	assert.True(t, PhaseFailed.Terminal())
}
