// Package inputs decodes and validates the raw values a request carries,
// url params and bodies both arrive as bytes.
package inputs

import (
	"context"
	"fmt"

	errorutils "github.com/corridor-intl/rail-go/libs/errors"
)

// Decodable - populates itself from raw request input
type Decodable interface {
	Decode(context.Context, []byte) error
}

// Validatable - checks decoded input against its own rules
type Validatable interface {
	Validate(context.Context) error
}

// DecodeValidate - decode and validate for inputs
type DecodeValidate interface {
	Validatable
	Decodable
}

// DecodeAndValidateString - perform decode and validate of input in one swipe of a string input
func DecodeAndValidateString(ctx context.Context, v DecodeValidate, input string) error {
	return DecodeAndValidate(ctx, v, []byte(input))
}

// DecodeAndValidate - perform decode and validate of input in one swipe
func DecodeAndValidate(ctx context.Context, v DecodeValidate, input []byte) error {
	var me = new(errorutils.MultiError)
	if err := v.Decode(ctx, input); err != nil {
		me.Append(fmt.Errorf("failed decoding: %w", err))
	}
	if err := v.Validate(ctx); err != nil {
		me.Append(fmt.Errorf("failed validation: %w", err))
	}
	if me.Count() > 0 {
		return me
	}
	return nil
}
