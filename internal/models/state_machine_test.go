package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMachine_HappyPath(t *testing.T) {
	rm := NewRunMachine()
	assert.Equal(t, StateInit, rm.GetCurrentState())

	steps := []struct {
		to        RunState
		condition string
	}{
		{StatePriceFetched, ConditionQuoteParsed},
		{StateStrikesComputed, ConditionStrikesRounded},
		{StateExpirationComputed, ConditionFridaySelected},
		{StateContractsMatched, ConditionLegsSelected},
		{StateOrderPlaced, ConditionOrderAccepted},
		{StateDone, ConditionResultReturned},
	}
	for _, step := range steps {
		require.NoError(t, rm.Transition(step.to, step.condition), "transition to %s", step.to)
	}

	assert.True(t, rm.IsTerminal())
	assert.Equal(t, StateOrderPlaced, rm.GetPreviousState())
	assert.Equal(t, []RunState{
		StateInit, StatePriceFetched, StateStrikesComputed, StateExpirationComputed,
		StateContractsMatched, StateOrderPlaced, StateDone,
	}, rm.History())
}

func TestRunMachine_RejectsSkippedStates(t *testing.T) {
	rm := NewRunMachine()

	err := rm.Transition(StateContractsMatched, ConditionLegsSelected)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transition from init to contracts_matched")
	assert.Equal(t, StateInit, rm.GetCurrentState())
}

func TestRunMachine_RejectsWrongCondition(t *testing.T) {
	rm := NewRunMachine()

	require.Error(t, rm.Transition(StatePriceFetched, ConditionLegsSelected))
	require.NoError(t, rm.Transition(StatePriceFetched, ""))
}

func TestRunMachine_FailFromAnyNonTerminalState(t *testing.T) {
	path := []RunState{
		StatePriceFetched, StateStrikesComputed, StateExpirationComputed,
		StateContractsMatched, StateOrderPlaced,
	}

	for i := 0; i <= len(path); i++ {
		rm := NewRunMachine()
		for _, s := range path[:i] {
			require.NoError(t, rm.Transition(s, ""))
		}
		require.NoError(t, rm.Fail(ConditionUpstreamFailure))
		assert.Equal(t, StateFailed, rm.GetCurrentState())
		assert.Equal(t, ConditionUpstreamFailure, rm.FailCondition())
		assert.Equal(t, "Run failed (upstream_failure)", rm.GetStateDescription())
	}
}

func TestRunMachine_TerminalStatesAreFinal(t *testing.T) {
	rm := NewRunMachine()
	require.NoError(t, rm.Fail(ConditionPriceUnavailable))

	assert.Error(t, rm.Fail(ConditionUpstreamFailure))
	assert.Error(t, rm.Transition(StatePriceFetched, ConditionQuoteParsed))
	assert.Equal(t, ConditionPriceUnavailable, rm.FailCondition())
}

func TestRunMachine_HistoryIsACopy(t *testing.T) {
	rm := NewRunMachine()
	h := rm.History()
	h[0] = StateDone
	assert.Equal(t, StateInit, rm.History()[0])
}
