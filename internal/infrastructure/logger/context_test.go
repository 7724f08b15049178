package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	logger := zap.NewExample()
	ctx := WithContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestWithRunID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, enriched := WithRunID(context.Background(), zap.New(core), "audit-1")
	assert.Equal(t, "audit-1", GetRunID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	FromContext(ctx).Info("replay finished")
	logs := recorded.All()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, "audit-1", logs[0].ContextMap()["run_id"])
	}
}

func TestGetRunID_Empty(t *testing.T) {
	assert.Empty(t, GetRunID(context.Background()))
}
