package payments

import "fmt"

// TransactionStatus is a string representing payment lifecycle state.
type TransactionStatus string

const (
	// StatusInitiated represents a payment accepted by the rail but not yet validated.
	StatusInitiated TransactionStatus = "INITIATED"
	// StatusValidated represents a payment whose fields passed structural validation.
	StatusValidated TransactionStatus = "VALIDATED"
	// StatusScreened represents a payment that cleared compliance screening.
	StatusScreened TransactionStatus = "SCREENED"
	// StatusApproved represents a payment cleared for settlement.
	StatusApproved TransactionStatus = "APPROVED"
	// StatusRejected represents a payment refused before settlement, permanently.
	StatusRejected TransactionStatus = "REJECTED"
	// StatusSettled represents a payment included in a closed settlement batch.
	StatusSettled TransactionStatus = "SETTLED"
	// StatusCompleted represents a settled payment with ledger finality.
	StatusCompleted TransactionStatus = "COMPLETED"
	// StatusFailed represents a payment that failed processing permanently.
	StatusFailed TransactionStatus = "FAILED"
	// StatusCancelled represents a payment withdrawn by the initiator before settlement.
	StatusCancelled TransactionStatus = "CANCELLED"
)

// ParseTransactionStatus parses the wire form of a lifecycle status.
func ParseTransactionStatus(v string) (TransactionStatus, error) {
	switch s := TransactionStatus(v); s {
	case StatusInitiated, StatusValidated, StatusScreened, StatusApproved,
		StatusRejected, StatusSettled, StatusCompleted, StatusFailed, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("invalid transaction status: %q", v)
}

// Transitions represents the valid forward-transitions for each given state.
var Transitions = map[TransactionStatus][]TransactionStatus{
	StatusInitiated: {StatusValidated, StatusRejected, StatusCancelled, StatusFailed},
	StatusValidated: {StatusScreened, StatusRejected, StatusCancelled, StatusFailed},
	StatusScreened:  {StatusApproved, StatusRejected, StatusCancelled, StatusFailed},
	StatusApproved:  {StatusSettled, StatusCancelled, StatusFailed},
	StatusSettled:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusRejected:  {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// GetValidTransitions returns valid transitions.
func (ts TransactionStatus) GetValidTransitions() []TransactionStatus {
	return Transitions[ts]
}

// CanTransition returns true if next is a valid forward transition from ts.
func (ts TransactionStatus) CanTransition(next TransactionStatus) bool {
	for _, s := range Transitions[ts] {
		if s == next {
			return true
		}
	}
	return false
}

// Terminal returns true once no further transitions are possible.
func (ts TransactionStatus) Terminal() bool {
	return len(Transitions[ts]) == 0
}

// CanCancel returns true while settlement has not yet moved funds.
func (ts TransactionStatus) CanCancel() bool {
	switch ts {
	case StatusSettled, StatusCompleted:
		return false
	}
	return true
}

// GetAllValidTransitionSequences returns all valid transition sequences.
func GetAllValidTransitionSequences() [][]TransactionStatus {
	return RecurseTransitionResolution(StatusInitiated, []TransactionStatus{})
}

// RecurseTransitionResolution returns the list of valid transition paths that are
// possible for a given state.
func RecurseTransitionResolution(
	state TransactionStatus,
	currentTree []TransactionStatus,
) [][]TransactionStatus {
	var (
		result      [][]TransactionStatus
		updatedTree = append(currentTree, state)
	)
	possibleStates := state.GetValidTransitions()
	if len(possibleStates) == 0 {
		tempTree := make([]TransactionStatus, len(updatedTree))
		copy(tempTree, updatedTree)
		result = append(result, tempTree)
		return result
	}
	for _, possibleState := range possibleStates {
		recursed := RecurseTransitionResolution(possibleState, updatedTree)
		result = append(result, recursed...)
	}
	return result
}
