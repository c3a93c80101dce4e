package closers

import (
	"context"
	"errors"
	"io"

	"github.com/corridor-intl/rail-go/libs/logging"
)

// Panic calls Close on the specified closer, panicking on error
func Panic(ctx context.Context, c io.Closer) {
	logger := logging.Logger(ctx, "closers.Panic")
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Error().Err(err).Msg("error attempting to close")
		if errors.Is(err, context.Canceled) {
			// a cancelled request body close is not worth crashing over
			return
		}
		panic(err.Error())
	}
}
