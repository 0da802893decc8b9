package pairing

import (
	"errors"
	"fmt"
)

// Step is how far a pairing attempt got.
type Step int

const (
	StepUnpaired Step = iota
	StepKeysGenerated
	StepSentToRelay
	StepSecretDerived
	StepEngineInitialized
	StepPaired
)

var stepNames = [...]string{
	StepUnpaired:          "unpaired",
	StepKeysGenerated:     "keys generated",
	StepSentToRelay:       "sent to relay",
	StepSecretDerived:     "secret derived",
	StepEngineInitialized: "engine initialized",
	StepPaired:            "paired",
}

func (s Step) String() string {
	if s >= 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Failure records the last step a failed attempt completed.
type Failure struct {
	Reached Step
	Err     error
}

func (f *Failure) Error() string { return fmt.Sprintf("after %s: %v", f.Reached, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

// FailedAt returns the last completed step of a failed attempt.
func FailedAt(err error) (Step, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reached, true
	}
	return 0, false
}
