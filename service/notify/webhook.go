package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/config"
)

type webhookService struct {
	CfgSvc config.IService
	Client *http.Client
}

func NewWebhook(cfgsvc config.IService) IService {
	return &webhookService{
		CfgSvc: cfgsvc,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (svc *webhookService) Post(event model.AlertEvent) error {
	payload := map[string]interface{}{
		"source":     event.Camera,
		"label":      event.Label,
		"confidence": event.Confidence,
		"message":    event.Message,
		"timestamp":  event.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := svc.Client.Post(svc.CfgSvc.GetWebhookURL(), "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (svc *webhookService) Finalize() {
	svc.Client.CloseIdleConnections()
}
