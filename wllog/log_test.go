package wllog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewWithOptionsDebugRaisesLevelToTrace(t *testing.T) {
	log := NewWithOptions(true, "")
	require.Equal(t, zerolog.TraceLevel, log.GetLevel())
}

func TestNewWithOptionsWithoutDebugStaysAtInfo(t *testing.T) {
	log := NewWithOptions(false, "")
	require.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestTraceMessageDoesNotPanicAtInfoLevel(t *testing.T) {
	log := NewWithOptions(false, "proxy")
	require.NotPanics(t, func() {
		TraceMessage(log, Outbound, "wl_display", 1, 0, "sync")
	})
}
