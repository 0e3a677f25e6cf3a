package models

import (
	"fmt"
	"time"
)

// RunState represents the progress of a single strategy run
type RunState string

const (
	StateInit               RunState = "init"                // Nothing fetched yet
	StatePriceFetched       RunState = "price_fetched"       // Underlying mid-price known
	StateStrikesComputed    RunState = "strikes_computed"    // Target strikes derived
	StateExpirationComputed RunState = "expiration_computed" // Target Friday derived
	StateContractsMatched   RunState = "contracts_matched"   // Both legs selected
	StateOrderPlaced        RunState = "order_placed"        // Order service acknowledged
	StateDone               RunState = "done"                // Result returned
	StateFailed             RunState = "failed"              // Stopped at first failure
)

// Transition conditions
const (
	ConditionQuoteParsed      = "quote_parsed"
	ConditionStrikesRounded   = "strikes_rounded"
	ConditionFridaySelected   = "friday_selected"
	ConditionLegsSelected     = "legs_selected"
	ConditionOrderAccepted    = "order_accepted"
	ConditionResultReturned   = "result_returned"
	ConditionPriceUnavailable = "price_unavailable"
	ConditionNoContracts      = "no_contracts"
	ConditionUpstreamFailure  = "upstream_failure"
	ConditionInvalidParams    = "invalid_params"
)

// StateTransition defines valid state transitions
type StateTransition struct {
	From        RunState
	To          RunState
	Condition   string
	Description string
}

// ValidTransitions is the linear run path; Failed is reachable from every
// non-terminal state and is listed separately in failureSources.
var ValidTransitions = []StateTransition{
	{StateInit, StatePriceFetched, ConditionQuoteParsed, "Quote returned a usable bid and ask"},
	{StatePriceFetched, StateStrikesComputed, ConditionStrikesRounded, "Strike targets rounded to the listing increment"},
	{StateStrikesComputed, StateExpirationComputed, ConditionFridaySelected, "Expiration moved forward to Friday"},
	{StateExpirationComputed, StateContractsMatched, ConditionLegsSelected, "Nearest call found for both legs"},
	{StateContractsMatched, StateOrderPlaced, ConditionOrderAccepted, "Order service returned a response"},
	{StateOrderPlaced, StateDone, ConditionResultReturned, "Order response returned verbatim"},
}

var failureSources = map[RunState]bool{
	StateInit:               true,
	StatePriceFetched:       true,
	StateStrikesComputed:    true,
	StateExpirationComputed: true,
	StateContractsMatched:   true,
	StateOrderPlaced:        true,
}

// RunMachine tracks the state of one strategy run
type RunMachine struct {
	transitionTime time.Time
	currentState   RunState
	previousState  RunState
	failCondition  string
	history        []RunState
}

// NewRunMachine creates a run machine in the Init state
func NewRunMachine() *RunMachine {
	return &RunMachine{
		currentState:   StateInit,
		previousState:  StateInit,
		transitionTime: time.Now().UTC(),
		history:        []RunState{StateInit},
	}
}

// GetCurrentState returns the current state
func (rm *RunMachine) GetCurrentState() RunState {
	return rm.currentState
}

// GetPreviousState returns the previous state
func (rm *RunMachine) GetPreviousState() RunState {
	return rm.previousState
}

// FailCondition returns the condition that moved the run to Failed, if any
func (rm *RunMachine) FailCondition() string {
	return rm.failCondition
}

// History returns every state visited, in order
func (rm *RunMachine) History() []RunState {
	out := make([]RunState, len(rm.history))
	copy(out, rm.history)
	return out
}

// IsTerminal reports whether the run has finished
func (rm *RunMachine) IsTerminal() bool {
	return rm.currentState == StateDone || rm.currentState == StateFailed
}

// IsValidTransition checks if a transition is valid
func (rm *RunMachine) IsValidTransition(to RunState, condition string) error {
	if to == StateFailed {
		if !failureSources[rm.currentState] {
			return fmt.Errorf("invalid transition from %s to %s: run already terminal", rm.currentState, to)
		}
		return nil
	}
	for _, transition := range ValidTransitions {
		if transition.From == rm.currentState && transition.To == to &&
			(transition.Condition == condition || condition == "") {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s with condition '%s'",
		rm.currentState, to, condition)
}

// Transition moves to a new state
func (rm *RunMachine) Transition(to RunState, condition string) error {
	if err := rm.IsValidTransition(to, condition); err != nil {
		return err
	}

	rm.previousState = rm.currentState
	rm.currentState = to
	rm.transitionTime = time.Now().UTC()
	rm.history = append(rm.history, to)
	if to == StateFailed {
		rm.failCondition = condition
	}
	return nil
}

// Fail moves the run to Failed from any non-terminal state
func (rm *RunMachine) Fail(condition string) error {
	return rm.Transition(StateFailed, condition)
}

// GetStateDescription returns a human-readable description of the current state
func (rm *RunMachine) GetStateDescription() string {
	switch rm.currentState {
	case StateInit:
		return "Run created, fetching underlying quote"
	case StatePriceFetched:
		return "Mid-price known, computing strike targets"
	case StateStrikesComputed:
		return "Strike targets known, computing expiration"
	case StateExpirationComputed:
		return "Expiration known, matching contracts"
	case StateContractsMatched:
		return "Both legs selected, submitting order"
	case StateOrderPlaced:
		return "Order acknowledged by order service"
	case StateDone:
		return "Run complete"
	case StateFailed:
		return fmt.Sprintf("Run failed (%s)", rm.failCondition)
	default:
		return "Unknown state"
	}
}
