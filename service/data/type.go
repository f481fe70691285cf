package data

import "github.com/firewatch/fd-go/model"

type IService interface {
	NewError(err interface{}) error
	NewAlerterStats(stats model.AlerterStats) error
	NewSourceStats(stats model.SourceStats) error
	NewDetectorStats(stats model.DetectorStats) error
	NewSessionStats(stats model.SessionStats) error
	NewAlertEvent(event model.AlertEvent) error
}
