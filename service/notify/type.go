package notify

import "github.com/firewatch/fd-go/model"

// IService posts an alert to an external side-channel. Implementations are
// best-effort: callers swallow returned errors so a failing channel never
// affects the detection loop.
type IService interface {
	Post(event model.AlertEvent) error
	Finalize()
}
