package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIMULineParsesAccelSample(t *testing.T) {
	l, ok, err := parseIMULine("accel,0.1,0.2,9.8")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "accel", l.kind)
	assert.Equal(t, 9.8, l.v.Z)
	assert.True(t, l.fitsCalibration)
}

func TestParseIMULineParsesMagSampleWithFitsFlag(t *testing.T) {
	l, ok, err := parseIMULine("mag,20,0,-40,false")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, l.fitsCalibration)
}

func TestParseIMULineSkipsBlankAndCommentLines(t *testing.T) {
	_, ok, err := parseIMULine("")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = parseIMULine("# imu firmware v1.2 booted")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseIMULineRejectsUnknownKind(t *testing.T) {
	_, _, err := parseIMULine("barometer,1,2,3")
	assert.Error(t, err)
}

func TestParseIMULineRejectsShortLine(t *testing.T) {
	_, _, err := parseIMULine("accel,1,2")
	assert.Error(t, err)
}

func TestParseIMULineRejectsBadFloat(t *testing.T) {
	_, _, err := parseIMULine("accel,notanumber,2,3")
	assert.Error(t, err)
}
