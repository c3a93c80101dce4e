package closers

import (
	"context"
	"io"

	"github.com/corridor-intl/rail-go/libs/logging"
)

// Log calls Close on the specified closer, logging any error
func Log(ctx context.Context, c io.Closer) {
	logger := logging.Logger(ctx, "closers.Log")
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Error().Err(err).Msg("error attempting to close")
	}
}
