package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/firewatch/fd-go/model"
	"github.com/firewatch/fd-go/service/config"
)

const mqttTimeout = 5 * time.Second

type mqttService struct {
	CfgSvc config.IService
	Client mqtt.Client
}

func NewMQTT(cfgsvc config.IService) (IService, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfgsvc.GetMQTTBroker()).
		SetClientID(fmt.Sprintf("fd-go-%s", uuid.NewString())).
		SetConnectTimeout(mqttTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", cfgsvc.GetMQTTBroker())
	}
	if err := token.Error(); err != nil {
		return nil, err
	}

	return &mqttService{
		CfgSvc: cfgsvc,
		Client: client,
	}, nil
}

func (svc *mqttService) Post(event model.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	token := svc.Client.Publish(svc.CfgSvc.GetMQTTTopic(), 0, false, payload)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("timed out publishing to %s", svc.CfgSvc.GetMQTTTopic())
	}
	return token.Error()
}

func (svc *mqttService) Finalize() {
	svc.Client.Disconnect(250)
}
