// Package session holds the mutable state of one detection run: the user
// controls read by the loop at iteration boundaries and the append-only alert
// history shared with the presentation layer.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/firewatch/fd-go/service/config"
)

// Session is one continuous run of the detection loop from initialization to
// stop or failure. A new session gets fresh controls and a fresh history.
type Session struct {
	ID        string
	StartTime time.Time
	Controls  *Controls
	State     *State
}

func New(cfgSvc config.IService) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		Controls:  NewControls(cfgSvc),
		State:     NewState(),
	}
}
