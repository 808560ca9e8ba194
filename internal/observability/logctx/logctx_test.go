package logctx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/minishop-stock/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability"
	"github.com/Zhima-Mochi/minishop-stock/internal/observability/logctx"
)

func TestFromOr_FallsBack(t *testing.T) {
	assert.Nil(t, logctx.From(context.Background()))
	assert.NotNil(t, logctx.FromOr(context.Background(), nil), "nil fallback yields a nop logger")
}

func TestEnrich_StacksFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zaplogger.Wrap(zap.New(core))

	ctx, _ := logctx.Enrich(context.Background(), base, observability.F("request_id", "O1"))
	_, logger := logctx.Enrich(ctx, nil, observability.F("item_id", "SKU1"))
	logger.Info("probe")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "O1", fields["request_id"])
	assert.Equal(t, "SKU1", fields["item_id"])
}
