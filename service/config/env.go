package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Bounds enforced on the user-adjustable settings.
const (
	MinConfidenceThreshold = float32(0.1)
	MaxConfidenceThreshold = float32(1.0)
	MinAlertCooldown       = 60 * time.Second
	MaxAlertCooldown       = 300 * time.Second
)

type envService struct {
	CameraSource        string  `env:"FD_CAMERA_SOURCE" envDefault:"0"`
	ConfidenceThreshold float32 `env:"FD_CONFIDENCE_THRESHOLD" envDefault:"0.5"`
	AlertsEnabled       bool    `env:"FD_ALERTS_ENABLED" envDefault:"true"`
	AlertCooldownSecs   int     `env:"FD_ALERT_COOLDOWN_SECONDS" envDefault:"60"`
	FireClasses         []int   `env:"FD_FIRE_CLASSES" envDefault:"25,26,27" envSeparator:","`

	ModelPath        string  `env:"FD_MODEL_PATH" envDefault:"./models/fire.onnx"`
	ClassNamesPath   string  `env:"FD_CLASS_NAMES_PATH" envDefault:"./models/fire.names"`
	ObjConfThreshold float32 `env:"FD_OBJECT_CONFIDENCE_THRESHOLD" envDefault:"0.5"`
	DetectionLogging bool    `env:"FD_DETECTION_LOGGING" envDefault:"false"`

	LoopIntervalMs       int `env:"FD_LOOP_INTERVAL_MS" envDefault:"50"`
	ReadBackoffSecs      int `env:"FD_READ_BACKOFF_SECONDS" envDefault:"2"`
	SourceReopenAttempts int `env:"FD_SOURCE_REOPEN_ATTEMPTS" envDefault:"1"`
	InferWarnAfterSecs   int `env:"FD_INFER_WARN_AFTER_SECONDS" envDefault:"5"`

	DashboardAddr string `env:"FD_DASHBOARD_ADDR" envDefault:":8080"`
	NotifierType  string `env:"FD_NOTIFIER" envDefault:"none"`
	WebhookURL    string `env:"FD_WEBHOOK_URL" envDefault:""`
	MQTTBroker    string `env:"FD_MQTT_BROKER" envDefault:""`
	MQTTTopic     string `env:"FD_MQTT_TOPIC" envDefault:"fire/alerts"`

	RecordingsFolder string `env:"FD_RECORDINGS_FOLDER" envDefault:"./recordings"`
	DataFolder       string `env:"FD_DATA_FOLDER" envDefault:"./data"`
	ShutdownSecs     int    `env:"FD_MODE_MAX_SHUTDOWN_SECONDS" envDefault:"5"`
}

func NewEnv() (IService, error) {
	svc := &envService{}
	if err := env.Parse(svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (svc *envService) GetCameraSource() string {
	return svc.CameraSource
}

func (svc *envService) GetConfidenceThreshold() float32 {
	return ClampThreshold(svc.ConfidenceThreshold)
}

func (svc *envService) GetAlertsEnabled() bool {
	return svc.AlertsEnabled
}

func (svc *envService) GetAlertCooldown() time.Duration {
	return ClampCooldown(time.Duration(svc.AlertCooldownSecs) * time.Second)
}

func (svc *envService) GetFireClasses() []int {
	return svc.FireClasses
}

func (svc *envService) GetModelPath() string {
	return svc.ModelPath
}

func (svc *envService) GetClassNamesPath() string {
	return svc.ClassNamesPath
}

func (svc *envService) GetObjectConfidenceThreshold() float32 {
	return svc.ObjConfThreshold
}

func (svc *envService) GetDetectionLogging() bool {
	return svc.DetectionLogging
}

func (svc *envService) GetLoopInterval() time.Duration {
	return time.Duration(svc.LoopIntervalMs) * time.Millisecond
}

func (svc *envService) GetReadBackoff() time.Duration {
	return time.Duration(svc.ReadBackoffSecs) * time.Second
}

func (svc *envService) GetSourceReopenAttempts() int {
	if svc.SourceReopenAttempts < 1 {
		return 1
	}
	return svc.SourceReopenAttempts
}

func (svc *envService) GetInferWarnAfter() time.Duration {
	return time.Duration(svc.InferWarnAfterSecs) * time.Second
}

func (svc *envService) GetDashboardAddr() string {
	return svc.DashboardAddr
}

func (svc *envService) GetNotifierType() string {
	return svc.NotifierType
}

func (svc *envService) GetWebhookURL() string {
	return svc.WebhookURL
}

func (svc *envService) GetMQTTBroker() string {
	return svc.MQTTBroker
}

func (svc *envService) GetMQTTTopic() string {
	return svc.MQTTTopic
}

func (svc *envService) GetRecordingsFolder() string {
	return svc.RecordingsFolder
}

func (svc *envService) GetDataFolder() string {
	return svc.DataFolder
}

func (svc *envService) GetModeMaxShutdownTime() time.Duration {
	return time.Duration(svc.ShutdownSecs) * time.Second
}

// ClampThreshold constrains a confidence threshold to the accepted range.
func ClampThreshold(v float32) float32 {
	if v < MinConfidenceThreshold {
		return MinConfidenceThreshold
	}
	if v > MaxConfidenceThreshold {
		return MaxConfidenceThreshold
	}
	return v
}

// ClampCooldown constrains an alert cooldown to the accepted range.
func ClampCooldown(v time.Duration) time.Duration {
	if v < MinAlertCooldown {
		return MinAlertCooldown
	}
	if v > MaxAlertCooldown {
		return MaxAlertCooldown
	}
	return v
}
