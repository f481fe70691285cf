package mode

import (
	"context"
	"log/slog"

	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/pipeline"
	"github.com/firewatch/fd-go/service/data"
	"github.com/firewatch/fd-go/service/lgr"
)

type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory, alerter pipeline.Alerter) error

func procStats(datasvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.AlerterStats:
		procAlerterStats(datasvc, stats)
	case model.SourceStats:
		procSourceStats(datasvc, stats)
	case model.DetectorStats:
		procDetectorStats(datasvc, stats)
	case model.SessionStats:
		procSessionStats(datasvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procAlerterStats(datasvc data.IService, stats model.AlerterStats) {
	err := datasvc.NewAlerterStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store alerter stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procSourceStats(datasvc data.IService, stats model.SourceStats) {
	err := datasvc.NewSourceStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store source stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procDetectorStats(datasvc data.IService, stats model.DetectorStats) {
	err := datasvc.NewDetectorStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store detector stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procSessionStats(datasvc data.IService, stats model.SessionStats) {
	err := datasvc.NewSessionStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store session stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
