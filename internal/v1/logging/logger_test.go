package logging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// resetLogger clears the global so each test controls initialization.
func resetLogger() {
	logger = nil
	once = sync.Once{}
}

func TestGetLogger_FallbackBeforeInitialize(t *testing.T) {
	resetLogger()
	assert.NotNil(t, GetLogger())
}

func TestGetLogger_SameInstanceAfterInitialize(t *testing.T) {
	resetLogger()
	assert.NoError(t, Initialize(true))

	assert.Equal(t, GetLogger(), GetLogger())
}

func TestInitialize_Idempotent(t *testing.T) {
	resetLogger()
	assert.NoError(t, Initialize(true))
	first := logger

	assert.NoError(t, Initialize(false))
	assert.Equal(t, first, logger)
}

func TestContextFieldsReachLogLines(t *testing.T) {
	resetLogger()

	core, logs := observer.New(zap.InfoLevel)
	logger = zap.New(core)

	Info(context.Background(), "plain")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "plain", logs.All()[0].Message)

	ctx := context.WithValue(context.Background(), RoomPinKey, "734626")
	ctx = context.WithValue(ctx, UserIDKey, "auth0|host-42")

	Info(ctx, "scoped")

	assert.Equal(t, 2, logs.Len())
	entry := logs.All()[1]
	assert.Equal(t, "scoped", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "734626", fields["room_pin"])
	assert.Equal(t, "auth0|host-42", fields["user_id"])
}

func TestLevelHelpers(t *testing.T) {
	resetLogger()

	core, logs := observer.New(zap.DebugLevel)
	logger = zap.New(core)

	ctx := context.Background()

	Info(ctx, "info msg", zap.String("key", "val"))
	Warn(ctx, "warn msg")
	Error(ctx, "error msg")

	assert.Equal(t, 3, logs.Len())
	assert.Equal(t, zap.InfoLevel, logs.All()[0].Level)
	assert.Equal(t, zap.WarnLevel, logs.All()[1].Level)
	assert.Equal(t, zap.ErrorLevel, logs.All()[2].Level)
}

func TestAppendContextFields(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, RoomPinKey, "112233")
	ctx = context.WithValue(ctx, UserIDKey, "auth0|host-7")
	ctx = context.WithValue(ctx, CorrelationIDKey, "req-0001")

	fields := appendContextFields(ctx, []zap.Field{})

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}

	assert.Equal(t, "112233", enc.Fields["room_pin"])
	assert.Equal(t, "auth0|host-7", enc.Fields["user_id"])
	assert.Equal(t, "req-0001", enc.Fields["correlation_id"])
	assert.Equal(t, "quizgame-backend", enc.Fields["service"])
}

func TestAppendContextFields_NilContext(t *testing.T) {
	fields := appendContextFields(nil, []zap.Field{zap.String("k", "v")})

	assert.Len(t, fields, 1)
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "", RedactEmail(""))
	assert.Equal(t, "***", RedactEmail("plainstring"))
	assert.Equal(t, "***@quizdome.io", RedactEmail("host@quizdome.io"))
	assert.Equal(t, "***@sub.domain.com", RedactEmail("firstname.lastname@sub.domain.com"))
}
