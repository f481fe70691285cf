package model

import (
	"fmt"
	"image"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Detection is one object instance found by the detector. ClassID is the raw
// model class index; Label is resolved from the class names file when one is
// configured.
type Detection struct {
	ClassID    int             `json:"classId"`
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	Rect       image.Rectangle `json:"rect"`
}

// AlertEvent is one entry in the session's append-only alert history.
type AlertEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
	Camera     string    `json:"camera"`
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
}

// Status messages surfaced to the presentation layer.
const (
	StatusFire         = "fire detected"
	StatusNoFire       = "no fire detected"
	StatusReconnecting = "camera feed lost — reconnecting"
	StatusUnavailable  = "source unavailable"
)

type AlerterStats struct {
	Name      string `json:"name"`
	Alerts    int    `json:"alerts"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type SourceStats struct {
	Name      string `json:"name"`
	Camera    string `json:"camera"`
	Frames    int    `json:"frames"`
	Errors    int    `json:"errors"`
	Reopens   int    `json:"reopens"`
	Uptime    int64  `json:"uptime"`
	FPS       int    `json:"fps"`
	Timestamp int64  `json:"timestamp"`
}

type DetectorStats struct {
	Name        string  `json:"name"`
	Camera      string  `json:"camera"`
	Frames      int     `json:"frames"`
	Errors      int     `json:"errors"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type SessionStats struct {
	ID         string `json:"id"`
	Camera     string `json:"camera"`
	State      string `json:"state"`
	Frames     int    `json:"frames"`
	Alerts     int    `json:"alerts"`
	Recoveries int    `json:"recoveries"`
	Uptime     int64  `json:"uptime"`
	Timestamp  int64  `json:"timestamp"`
}
