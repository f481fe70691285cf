package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/firewatch/fd-go/mode"
	"github.com/firewatch/fd-go/pipeline"
	"github.com/firewatch/fd-go/service/config"
	"github.com/firewatch/fd-go/service/data"
	"github.com/firewatch/fd-go/service/lgr"
	"github.com/firewatch/fd-go/service/notify"
)

const (
	// WARNING: this has to be bigger than the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"watch": mode.Watch,
	"probe": mode.Probe,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file loaded", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	modeType := "watch"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// Config service
	cfgSvc, err := config.NewEnv()
	if err != nil {
		lgr.Logger.Error("error parsing configuration", slog.Any("error", xerrors.New(err.Error())))
		panic("error parsing configuration")
	}
	// Data service
	dataSvc := data.NewFilesDB(cfgSvc)
	// Notification service
	notifySvc := newNotifier(cfgSvc)
	defer notifySvc.Finalize()

	svcs := pipeline.ServicesFactory{
		CfgSvc:    cfgSvc,
		DataSvc:   dataSvc,
		NotifySvc: notifySvc,
	}

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Use the library simple alerter

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, pipeline.SimpleAlerter)
	}()

	// Wait for cancellation, mode proc or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"detector pod context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"detector pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are exiting
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"detector pod is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"detector pod shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"detector pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}

func newNotifier(cfgSvc config.IService) notify.IService {
	switch cfgSvc.GetNotifierType() {
	case "webhook":
		return notify.NewWebhook(cfgSvc)
	case "mqtt":
		svc, err := notify.NewMQTT(cfgSvc)
		if err != nil {
			// A dead side-channel must not keep the detector from running.
			lgr.Logger.Warn(
				"mqtt notifier unavailable, falling back to none",
				slog.Any("error", xerrors.New(err.Error())),
			)
			return notify.NewFake(cfgSvc)
		}
		return svc
	default:
		return notify.NewFake(cfgSvc)
	}
}
