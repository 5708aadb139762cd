package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStageDoneTagsRunAndStage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Logger
	SetLogger(zap.New(core))
	defer SetLogger(prev)

	StageDone(Stage("run-1", "filter"), 10, 7, time.Now())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "stage complete", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "filter", fields["stage"])
	assert.Equal(t, int64(7), fields["rows_out"])
}

func TestInitializeWritesToFile(t *testing.T) {
	prev := Logger
	defer SetLogger(prev)

	path := t.TempDir() + "/run.log"
	require.NoError(t, Initialize(Config{Level: "debug", Format: "json", Output: path}))
	Debug("hello")
	Sync()
	assert.FileExists(t, path)
}

func TestInitializeFallsBackToInfo(t *testing.T) {
	prev := Logger
	defer SetLogger(prev)

	require.NoError(t, Initialize(Config{Level: "loud", Output: "stderr"}))
	assert.False(t, Logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, Logger.Core().Enabled(zap.InfoLevel))
}
