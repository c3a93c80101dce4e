package risk_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/corridor-intl/rail-go/libs/event"
	"github.com/corridor-intl/rail-go/libs/kv"
	"github.com/corridor-intl/rail-go/libs/logging"
	"github.com/corridor-intl/rail-go/services/risk"
	redis "github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeChangeHandlerDropsMetricsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	store := kv.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx, _ := logging.SetupLogger(context.Background())

	require.NoError(t, mr.Set("risk:metrics", `{"risk_score":50}`))

	envelope, err := event.NewMessage(&risk.ModeChangedEvent{
		PreviousMode: risk.ModeMedium,
		NewMode:      risk.ModeHigh,
	})
	require.NoError(t, err)
	data, err := json.Marshal(envelope)
	require.NoError(t, err)

	handler := risk.NewModeChangeHandler(store)
	require.NoError(t, handler.Handle(ctx, kafkago.Message{Value: data}))

	assert.False(t, mr.Exists("risk:metrics"))
}

func TestModeChangeHandlerRejectsBadEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	store := kv.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx, _ := logging.SetupLogger(context.Background())

	handler := risk.NewModeChangeHandler(store)
	err := handler.Handle(ctx, kafkago.Message{Value: []byte("not an envelope")})
	assert.Error(t, err)
}
