package session

import (
	"sync"
	"time"

	"github.com/firewatch/fd-go/service/config"
)

// Controls is the run control block mutated by the dashboard at any time and
// read by the loop at the top of each iteration. A change may therefore apply
// one iteration late.
type Controls struct {
	mu sync.RWMutex

	stopRequested bool
	threshold     float32
	cooldown      time.Duration
	alertsEnabled bool
	source        string
}

func NewControls(cfgSvc config.IService) *Controls {
	return &Controls{
		threshold:     cfgSvc.GetConfidenceThreshold(),
		cooldown:      cfgSvc.GetAlertCooldown(),
		alertsEnabled: cfgSvc.GetAlertsEnabled(),
		source:        cfgSvc.GetCameraSource(),
	}
}

func (c *Controls) StopRequested() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopRequested
}

func (c *Controls) RequestStop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopRequested = true
}

func (c *Controls) Threshold() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threshold
}

func (c *Controls) SetThreshold(v float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = config.ClampThreshold(v)
}

func (c *Controls) Cooldown() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cooldown
}

func (c *Controls) SetCooldown(v time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooldown = config.ClampCooldown(v)
}

func (c *Controls) AlertsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.alertsEnabled
}

func (c *Controls) SetAlertsEnabled(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alertsEnabled = v
}

func (c *Controls) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// SetSource changes the camera descriptor. The loop applies it between
// frames. An empty descriptor is ignored.
func (c *Controls) SetSource(v string) {
	if v == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = v
}
