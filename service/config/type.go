package config

import "time"

type IService interface {
	GetCameraSource() string
	GetConfidenceThreshold() float32
	GetAlertsEnabled() bool
	GetAlertCooldown() time.Duration
	GetFireClasses() []int

	GetModelPath() string
	GetClassNamesPath() string
	GetObjectConfidenceThreshold() float32
	GetDetectionLogging() bool

	GetLoopInterval() time.Duration
	GetReadBackoff() time.Duration
	GetSourceReopenAttempts() int
	GetInferWarnAfter() time.Duration

	GetDashboardAddr() string
	GetNotifierType() string
	GetWebhookURL() string
	GetMQTTBroker() string
	GetMQTTTopic() string

	GetRecordingsFolder() string
	GetDataFolder() string
	GetModeMaxShutdownTime() time.Duration
}
