package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvDefaults(t *testing.T) {
	svc, err := NewEnv()
	require.NoError(t, err)

	assert.Equal(t, "0", svc.GetCameraSource())
	assert.Equal(t, float32(0.5), svc.GetConfidenceThreshold())
	assert.True(t, svc.GetAlertsEnabled())
	assert.Equal(t, 60*time.Second, svc.GetAlertCooldown())
	assert.Equal(t, []int{25, 26, 27}, svc.GetFireClasses())
	assert.Equal(t, 50*time.Millisecond, svc.GetLoopInterval())
	assert.Equal(t, 2*time.Second, svc.GetReadBackoff())
	assert.Equal(t, 1, svc.GetSourceReopenAttempts())
	assert.Equal(t, float32(0.5), svc.GetObjectConfidenceThreshold())
	assert.Equal(t, ":8080", svc.GetDashboardAddr())
	assert.Equal(t, "none", svc.GetNotifierType())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FD_CAMERA_SOURCE", "rtsp://cam/live")
	t.Setenv("FD_FIRE_CLASSES", "1,2")
	t.Setenv("FD_SOURCE_REOPEN_ATTEMPTS", "3")

	svc, err := NewEnv()
	require.NoError(t, err)

	assert.Equal(t, "rtsp://cam/live", svc.GetCameraSource())
	assert.Equal(t, []int{1, 2}, svc.GetFireClasses())
	assert.Equal(t, 3, svc.GetSourceReopenAttempts())
}

func TestEnvClampsOutOfRangeValues(t *testing.T) {
	t.Setenv("FD_CONFIDENCE_THRESHOLD", "1.5")
	t.Setenv("FD_ALERT_COOLDOWN_SECONDS", "10")
	t.Setenv("FD_SOURCE_REOPEN_ATTEMPTS", "0")

	svc, err := NewEnv()
	require.NoError(t, err)

	assert.Equal(t, float32(1.0), svc.GetConfidenceThreshold())
	assert.Equal(t, 60*time.Second, svc.GetAlertCooldown())
	assert.Equal(t, 1, svc.GetSourceReopenAttempts())
}

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, float32(0.1), ClampThreshold(0.0))
	assert.Equal(t, float32(0.5), ClampThreshold(0.5))
	assert.Equal(t, float32(1.0), ClampThreshold(2.0))

	assert.Equal(t, MinAlertCooldown, ClampCooldown(time.Second))
	assert.Equal(t, 120*time.Second, ClampCooldown(120*time.Second))
	assert.Equal(t, MaxAlertCooldown, ClampCooldown(time.Hour))
}
