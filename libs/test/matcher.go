package test

import (
	"fmt"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
)

// DecEq returns a matcher comparing decimal.Decimal by value, two
// representations of the same amount match even when their exponents differ.
func DecEq(expected decimal.Decimal) gomock.Matcher {
	return decMatcher{expected}
}

type decMatcher struct {
	expected decimal.Decimal
}

func (m decMatcher) Matches(x interface{}) bool {
	actual, ok := x.(decimal.Decimal)
	return ok && m.expected.Equal(actual)
}

func (m decMatcher) String() string {
	return fmt.Sprintf("is equal to %v", m.expected)
}

// TimeNear returns a matcher accepting a time.Time within tolerance of
// expected. Code under test reads its own clock a moment after the test
// does, so now-relative arguments never match exactly.
func TimeNear(expected time.Time, tolerance time.Duration) gomock.Matcher {
	return timeMatcher{expected: expected, tolerance: tolerance}
}

type timeMatcher struct {
	expected  time.Time
	tolerance time.Duration
}

func (m timeMatcher) Matches(x interface{}) bool {
	actual, ok := x.(time.Time)
	if !ok {
		return false
	}
	delta := actual.Sub(m.expected)
	if delta < 0 {
		delta = -delta
	}
	return delta <= m.tolerance
}

func (m timeMatcher) String() string {
	return fmt.Sprintf("is within %v of %v", m.tolerance, m.expected)
}
