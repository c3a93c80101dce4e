package payments

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
Generate all valid transition sequences and ensure that this test contains the exact same set of
valid transition sequences. The purpose of this test is to alert us if outside changes
impact the set of valid transitions.
*/
func TestRecurseTransitionResolution(t *testing.T) {
	allValidTransitionSequences := GetAllValidTransitionSequences()
	knownValidTransitionSequences := [][]TransactionStatus{
		{StatusInitiated, StatusValidated, StatusScreened, StatusApproved, StatusSettled, StatusCompleted},
		{StatusInitiated, StatusValidated, StatusScreened, StatusApproved, StatusSettled, StatusFailed},
		{StatusInitiated, StatusValidated, StatusScreened, StatusApproved, StatusCancelled},
		{StatusInitiated, StatusValidated, StatusScreened, StatusApproved, StatusFailed},
		{StatusInitiated, StatusValidated, StatusScreened, StatusRejected},
		{StatusInitiated, StatusValidated, StatusScreened, StatusCancelled},
		{StatusInitiated, StatusValidated, StatusScreened, StatusFailed},
		{StatusInitiated, StatusValidated, StatusRejected},
		{StatusInitiated, StatusValidated, StatusCancelled},
		{StatusInitiated, StatusValidated, StatusFailed},
		{StatusInitiated, StatusRejected},
		{StatusInitiated, StatusCancelled},
		{StatusInitiated, StatusFailed},
	}
	// Ensure every generated sequence has a matching known sequence
	for _, generatedTransitionSequence := range allValidTransitionSequences {
		foundMatch := false
		for _, knownValidTransitionSequence := range knownValidTransitionSequences {
			if reflect.DeepEqual(generatedTransitionSequence, knownValidTransitionSequence) {
				foundMatch = true
			}
		}
		assert.True(t, foundMatch, "unexpected sequence %v", generatedTransitionSequence)
	}
	// Ensure every known sequence was generated
	for _, knownValidTransitionSequence := range knownValidTransitionSequences {
		foundMatch := false
		for _, generatedTransitionSequence := range allValidTransitionSequences {
			if reflect.DeepEqual(generatedTransitionSequence, knownValidTransitionSequence) {
				foundMatch = true
			}
		}
		assert.True(t, foundMatch, "missing sequence %v", knownValidTransitionSequence)
	}
}

func TestCanCancel(t *testing.T) {
	assert.True(t, StatusInitiated.CanCancel())
	assert.True(t, StatusApproved.CanCancel())
	assert.True(t, StatusCancelled.CanCancel())
	assert.False(t, StatusSettled.CanCancel())
	assert.False(t, StatusCompleted.CanCancel())
}

func TestParseTransactionStatus(t *testing.T) {
	s, err := ParseTransactionStatus("SETTLED")
	assert.NoError(t, err)
	assert.Equal(t, StatusSettled, s)

	_, err = ParseTransactionStatus("settled")
	assert.Error(t, err)
}

func TestParseSettlementMethod(t *testing.T) {
	m, err := ParseSettlementMethod("NETTING")
	assert.NoError(t, err)
	assert.Equal(t, MethodNetting, m)

	_, err = ParseSettlementMethod("SWIFT")
	assert.Error(t, err)
}

func TestParsePaymentCategory(t *testing.T) {
	c, err := ParsePaymentCategory("TRADE")
	assert.NoError(t, err)
	assert.Equal(t, CategoryTrade, c)

	_, err = ParsePaymentCategory("trade")
	assert.Error(t, err)
}
