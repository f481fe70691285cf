package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/service/config"
)

func TestNewYoloDetectorMissingModel(t *testing.T) {
	t.Setenv("FD_MODEL_PATH", filepath.Join(t.TempDir(), "missing.onnx"))

	cfgSvc, err := config.NewEnv()
	require.NoError(t, err)

	detector, err := NewYoloDetector(cfgSvc)
	assert.Nil(t, detector)
	assert.ErrorIs(t, err, ErrModelLoad)
}

func TestExtractDetectionObjectnessGate(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	d := &yoloDetector{objThreshold: 0.5}

	// Objectness below the object threshold is rejected outright, even when
	// the class score is high.
	row := []float32{0.5, 0.5, 0.2, 0.2, 0.4, 0.9}
	_, ok := d.extractDetection(frame, row, 0.1)
	assert.False(t, ok)

	// Clearing both gates yields objectness * class score.
	row[4] = 0.8
	det, ok := d.extractDetection(frame, row, 0.5)
	require.True(t, ok)
	assert.Equal(t, 0, det.ClassID)
	assert.InDelta(t, 0.72, float64(det.Confidence), 1e-4)
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fire.names")
	require.NoError(t, os.WriteFile(path, []byte("fire\nsmoke\nflame\n"), 0o644))

	assert.Equal(t, []string{"fire", "smoke", "flame"}, loadLabels(path))
	assert.Nil(t, loadLabels(filepath.Join(t.TempDir(), "absent.names")))
}
