package pipeline

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/firewatch/fd-go/service/config"
	"github.com/firewatch/fd-go/service/data"
	"github.com/firewatch/fd-go/service/notify"
	"github.com/firewatch/fd-go/session"
)

type AlertData struct {
	Mat        gocv.Mat
	Camera     string
	Label      string
	Confidence float32
	Timestamp  time.Time
}

type ServicesFactory struct {
	CfgSvc    config.IService
	DataSvc   data.IService
	NotifySvc notify.IService
}

// Signature of alerter function
type Alerter func(canx context.Context, svcs ServicesFactory, sess *session.Session, errorStream chan interface{}, statsStream chan interface{}) chan AlertData

// Presenter receives per-iteration output for the presentation layer. The
// annotated frame is only valid for the duration of the call; implementations
// must copy or encode it before returning.
type Presenter interface {
	Frame(annotated gocv.Mat)
	Status(state string, message string)
}
