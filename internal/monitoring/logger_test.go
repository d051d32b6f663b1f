package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOrDiscard(t *testing.T) {
	called := false
	custom := Logf(func(format string, v ...interface{}) {
		called = true
	})

	OrDiscard(custom)("test %d", 1)
	assert.True(t, called)

	// nil must become a usable no-op
	assert.NotPanics(t, func() { OrDiscard(nil)("test message: %s", "value") })
}

func TestNewLogger(t *testing.T) {
	for _, mode := range []string{"", "development", "production"} {
		logger, err := NewLogger(mode)
		require.NoError(t, err, "mode %q", mode)
		require.NotNil(t, logger)
	}

	_, err := NewLogger("verbose")
	assert.Error(t, err)
}

func TestPrintf(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logf := Printf(zap.New(core))

	logf("applied %d of %d files", 3, 4)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "applied 3 of 4 files", entries[0].Message)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)

	assert.NotPanics(t, func() { Printf(nil)("dropped") })
}
