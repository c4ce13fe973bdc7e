package younglaplace

import (
	"encoding/json"
	"strings"
)

// State is the lifecycle of an Optimizer.
type State int32

const (
	StateReady State = iota
	StateFitting
	StateFinished
	StateCancelled
	StateUnexpectedException
)

var stateNames = [...]string{
	StateReady:               "READY",
	StateFitting:             "FITTING",
	StateFinished:            "FINISHED",
	StateCancelled:           "CANCELLED",
	StateUnexpectedException: "UNEXPECTED_EXCEPTION",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateCancelled || s == StateUnexpectedException
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// StopFlags records why a fit stopped. Several may be set at once.
type StopFlags uint8

const (
	ConvergedInParameters StopFlags = 1 << iota
	ConvergedInGradient
	ConvergedInObjective
	MaximumStepsExceeded
)

var flagNames = []struct {
	flag StopFlags
	name string
}{
	{ConvergedInParameters, "CONVERGENCE_IN_PARAMETERS"},
	{ConvergedInGradient, "CONVERGENCE_IN_GRADIENT"},
	{ConvergedInObjective, "CONVERGENCE_IN_OBJECTIVE"},
	{MaximumStepsExceeded, "MAXIMUM_STEPS_EXCEEDED"},
}

// Converged reports whether any convergence criterion was met.
func (f StopFlags) Converged() bool {
	return f&(ConvergedInParameters|ConvergedInGradient|ConvergedInObjective) != 0
}

// Names lists the set flags.
func (f StopFlags) Names() []string {
	names := []string{}
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f StopFlags) String() string { return strings.Join(f.Names(), "|") }

// MarshalJSON encodes the flags as a list of names.
func (f StopFlags) MarshalJSON() ([]byte, error) { return json.Marshal(f.Names()) }
