package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fieldcam/cameracore/internal/orientation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPortOptionsNormalizeSucceeds(t *testing.T) {
	opts, err := defaultPortOptions().normalize()
	require.NoError(t, err)
	assert.Equal(t, 115200, opts.BaudRate)
	assert.Equal(t, "N", opts.Parity)
}

func TestPortOptionsNormalizeRejectsBadDataBits(t *testing.T) {
	_, err := portOptions{DataBits: 3}.normalize()
	assert.Error(t, err)
}

func TestPortOptionsNormalizeRejectsBadParity(t *testing.T) {
	_, err := portOptions{Parity: "X"}.normalize()
	assert.Error(t, err)
}

func TestPortOptionsSerialModeAppliesDefaults(t *testing.T) {
	mode, err := portOptions{}.serialMode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
}

func TestStreamFeedsSamplesAndWritesOneLinePerSample(t *testing.T) {
	input := "accel,0,0,9.81\ngyro,0,0,0.01\nmag,20,0,-40,true\n"
	fusion := orientation.NewOnlineSensorFusion(nil)

	var out bytes.Buffer
	err := stream(context.Background(), strings.NewReader(input), fusion, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3)
	for _, l := range lines {
		assert.Contains(t, l, "angle=")
		assert.Contains(t, l, "axis=")
	}
}

func TestStreamSkipsMalformedLinesWithoutAborting(t *testing.T) {
	input := "not,a,valid,line,at,all,extra\naccel,0,0,9.81\n"
	fusion := orientation.NewOnlineSensorFusion(nil)

	var out bytes.Buffer
	err := stream(context.Background(), strings.NewReader(input), fusion, &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 1)
}

func TestStreamStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fusion := orientation.NewOnlineSensorFusion(nil)
	var out bytes.Buffer
	err := stream(ctx, strings.NewReader("accel,0,0,9.81\n"), fusion, &out)
	assert.ErrorIs(t, err, context.Canceled)
}
