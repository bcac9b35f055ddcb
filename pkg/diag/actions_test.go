package diag

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsoleAction(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var buf bytes.Buffer
	r := NewReporter()
	AttachAll(r, LevelDebug, ConsoleAction(&buf))

	r.Apply(LevelWarning, "search path missing", Location{
		Module: "bus.system",
		File:   "/src/bus/loader.go",
		Line:   42,
	})
	r.Apply(LevelError, "no location", Location{Module: "bus"})

	assert.Equal(t,
		"WARNING bus.system loader.go:42: search path missing\n"+
			"ERROR bus: no location\n",
		buf.String())
}

func TestZapAction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReporter()
	AttachAll(r, LevelDebug, ZapAction(zap.New(core)))

	r.Apply(LevelDebug, "d", Location{Module: "m"})
	r.Apply(LevelInfo, "i", Location{Module: "m"})
	r.Apply(LevelWarning, "w", Location{Module: "m"})
	r.Apply(LevelError, "e", Location{Module: "m", File: "f.go", Function: "fn", Line: 3})

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)

	fields := entries[3].ContextMap()
	assert.Equal(t, "m", fields["module"])
	assert.Equal(t, "f.go", fields["file"])
	assert.Equal(t, "fn", fields["func"])
	assert.EqualValues(t, 3, fields["line"])
}
